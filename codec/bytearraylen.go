package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/cramerr"
)

// byteArrayLenCodec decodes a length from lenCodec, then that many bytes
// from valCodec (either a ByteArrayDecoder able to read the whole run at
// once, or a ByteDecoder read one byte at a time).
type byteArrayLenCodec struct {
	lenCodec Codec
	valCodec Codec
}

func initByteArrayLen(c *byteCursor, version int) (Codec, error) {
	lenCodec, err := initNestedCodec(c, version)
	if err != nil {
		return nil, errors.Wrap(err, "codec: byte-array-len: length codec")
	}
	valCodec, err := initNestedCodec(c, version)
	if err != nil {
		return nil, errors.Wrap(err, "codec: byte-array-len: value codec")
	}
	return &byteArrayLenCodec{lenCodec: lenCodec, valCodec: valCodec}, nil
}

func (c *byteArrayLenCodec) Kind() Kind           { return KindByteArrayLen }
func (c *byteArrayLenCodec) ValueKind() ValueKind { return ValByteArray }

func (c *byteArrayLenCodec) Store(version int) []byte {
	out := writeRawDescriptor(c.lenCodec.Kind(), c.lenCodec.ValueKind(), c.lenCodec.Store(version))
	out = append(out, writeRawDescriptor(c.valCodec.Kind(), c.valCodec.ValueKind(), c.valCodec.Store(version))...)
	return out
}

func (c *byteArrayLenCodec) DecodeByteArray(src *Source, _ int) ([]byte, error) {
	lenDec, ok := c.lenCodec.(IntDecoder)
	if !ok {
		return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: byte-array-len: length codec is not an int decoder")
	}
	l, err := lenDec.DecodeInt(src)
	if err != nil {
		return nil, errors.Wrap(err, "codec: byte-array-len: length")
	}
	if ba, ok := c.valCodec.(ByteArrayDecoder); ok {
		return ba.DecodeByteArray(src, int(l))
	}
	bd, ok := c.valCodec.(ByteDecoder)
	if !ok {
		return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: byte-array-len: value codec decodes neither bytes nor byte arrays")
	}
	out := make([]byte, l)
	for i := range out {
		out[i], err = bd.DecodeByte(src)
		if err != nil {
			return nil, errors.Wrap(err, "codec: byte-array-len: value")
		}
	}
	return out, nil
}

func (c *byteArrayLenCodec) EncodeByteArray(sink *Sink, v []byte) error {
	lenEnc, ok := c.lenCodec.(IntEncoder)
	if !ok {
		return errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: byte-array-len: length codec is not an int encoder")
	}
	if err := lenEnc.EncodeInt(sink, int64(len(v))); err != nil {
		return errors.Wrap(err, "codec: byte-array-len: length")
	}
	if ba, ok := c.valCodec.(ByteArrayEncoder); ok {
		return ba.EncodeByteArray(sink, v)
	}
	be, ok := c.valCodec.(ByteEncoder)
	if !ok {
		return errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: byte-array-len: value codec encodes neither bytes nor byte arrays")
	}
	for _, b := range v {
		if err := be.EncodeByte(sink, b); err != nil {
			return errors.Wrap(err, "codec: byte-array-len: value")
		}
	}
	return nil
}
