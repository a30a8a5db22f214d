package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
)

// gammaCodec is an Elias-gamma variable-length integer code: a unary run
// of 0-bits gives the mantissa width, followed by the mantissa itself
// (the leading 1 of the decoded value is implicit, not stored).
type gammaCodec struct {
	valueKind ValueKind
	offset    int32
}

func initGamma(c *byteCursor, valueKind ValueKind) (Codec, error) {
	offset, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: gamma: offset")
	}
	return &gammaCodec{valueKind: valueKind, offset: offset}, nil
}

func (c *gammaCodec) Kind() Kind           { return KindGamma }
func (c *gammaCodec) ValueKind() ValueKind { return c.valueKind }

func (c *gammaCodec) Store(int) []byte {
	return bitio.WriteITF8(c.offset)
}

func (c *gammaCodec) DecodeInt(src *Source) (int64, error) {
	nz, err := src.Core.ReadZeroRun()
	if err != nil {
		return 0, errors.Wrap(err, "codec: gamma: nz")
	}
	var mantissa uint64
	if nz > 0 {
		mantissa, err = src.Core.ReadBits(uint8(nz))
		if err != nil {
			return 0, errors.Wrap(err, "codec: gamma: mantissa")
		}
	}
	x := (uint64(1) << nz) + mantissa
	return int64(x) - int64(c.offset), nil
}

func (c *gammaCodec) EncodeInt(sink *Sink, v int64) error {
	x := uint64(v + int64(c.offset))
	var nz uint64
	for (uint64(1) << (nz + 1)) <= x {
		nz++
	}
	if err := sink.Core.WriteZeroRun(nz); err != nil {
		return err
	}
	if nz == 0 {
		return nil
	}
	mantissa := x - (uint64(1) << nz)
	return sink.Core.WriteBits(mantissa, uint8(nz))
}
