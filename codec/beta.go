package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
)

// betaCodec reads a fixed-width field of nbits MSB-first and subtracts a
// constant offset; nbits=0 degenerates to the fixed value -offset.
type betaCodec struct {
	valueKind ValueKind
	offset    int32
	nbits     uint8
}

func initBeta(c *byteCursor, valueKind ValueKind) (Codec, error) {
	offset, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: beta: offset")
	}
	nbits, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: beta: nbits")
	}
	return &betaCodec{valueKind: valueKind, offset: offset, nbits: uint8(nbits)}, nil
}

func (c *betaCodec) Kind() Kind           { return KindBeta }
func (c *betaCodec) ValueKind() ValueKind { return c.valueKind }

func (c *betaCodec) Store(int) []byte {
	out := bitio.WriteITF8(c.offset)
	return append(out, bitio.WriteITF8(int32(c.nbits))...)
}

func (c *betaCodec) DecodeInt(src *Source) (int64, error) {
	if c.nbits == 0 {
		return int64(-c.offset), nil
	}
	v, err := src.Core.ReadBits(c.nbits)
	if err != nil {
		return 0, errors.Wrap(err, "codec: beta: decode")
	}
	return int64(v) - int64(c.offset), nil
}

func (c *betaCodec) EncodeInt(sink *Sink, v int64) error {
	if c.nbits == 0 {
		return nil
	}
	return sink.Core.WriteBits(uint64(v+int64(c.offset)), c.nbits)
}
