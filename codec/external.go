package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// externalCodec reads/writes an external block identified by ContentID.
// Int-kind values are varint-encoded (ITF-8 for int32, LTF-8 for int64)
// within the block; byte and byte-array values are copied verbatim.
type externalCodec struct {
	valueKind ValueKind
	contentID int32
}

func initExternal(c *byteCursor, valueKind ValueKind) (Codec, error) {
	id, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: external: content id")
	}
	return &externalCodec{valueKind: valueKind, contentID: id}, nil
}

// NewExternal builds an external codec targeting the given content id
// directly, for use by an encoder choosing its own codec assignment
// rather than parsing one from an existing descriptor.
func NewExternal(valueKind ValueKind, contentID int32) Codec {
	return &externalCodec{valueKind: valueKind, contentID: contentID}
}

func (c *externalCodec) Kind() Kind           { return KindExternal }
func (c *externalCodec) ValueKind() ValueKind { return c.valueKind }

func (c *externalCodec) Store(int) []byte {
	return bitio.WriteITF8(c.contentID)
}

func (c *externalCodec) block(src *Source) (blockReader, error) {
	if src.External == nil {
		return nil, errors.Wrapf(cramerr.ErrMissingBlock, "codec: external: no block lookup configured for content id %d", c.contentID)
	}
	b, err := src.External(c.contentID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// blockReader is the subset of *block.Block the external codec needs.
type blockReader interface {
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
}

func (c *externalCodec) DecodeInt(src *Source) (int64, error) {
	b, err := c.block(src)
	if err != nil {
		return 0, err
	}
	switch c.valueKind {
	case ValInt32:
		v, err := bitio.ReadITF8(b)
		return int64(v), err
	case ValInt64:
		return bitio.ReadLTF8(b)
	default:
		return 0, errors.Wrapf(cramerr.ErrUnsupportedCodec, "codec: external: DecodeInt on value kind %d", c.valueKind)
	}
}

func (c *externalCodec) DecodeByte(src *Source) (byte, error) {
	b, err := c.block(src)
	if err != nil {
		return 0, err
	}
	return b.ReadByte()
}

func (c *externalCodec) DecodeByteArray(src *Source, n int) ([]byte, error) {
	b, err := c.block(src)
	if err != nil {
		return nil, err
	}
	return b.ReadBytes(n)
}

func (c *externalCodec) writer(sink *Sink) (*ExternalWriter, error) {
	if sink.External == nil {
		return nil, errors.New("codec: external: no block writer configured")
	}
	return sink.External(c.contentID)
}

func (c *externalCodec) EncodeInt(sink *Sink, v int64) error {
	w, err := c.writer(sink)
	if err != nil {
		return err
	}
	switch c.valueKind {
	case ValInt32:
		_, err = w.Write(bitio.WriteITF8(int32(v)))
	case ValInt64:
		_, err = w.Write(bitio.WriteLTF8(v))
	default:
		return errors.Wrapf(cramerr.ErrUnsupportedCodec, "codec: external: EncodeInt on value kind %d", c.valueKind)
	}
	return err
}

func (c *externalCodec) EncodeByte(sink *Sink, v byte) error {
	w, err := c.writer(sink)
	if err != nil {
		return err
	}
	return w.WriteByte(v)
}

func (c *externalCodec) EncodeByteArray(sink *Sink, v []byte) error {
	w, err := c.writer(sink)
	if err != nil {
		return err
	}
	_, err = w.Write(v)
	return err
}
