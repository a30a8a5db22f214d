package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
)

// subexpCodec is a subexponential (Golomb-Rice-like) variable-length
// integer code: a unary run of 1-bits selects a mantissa width that
// grows by one bit per step.
type subexpCodec struct {
	valueKind ValueKind
	offset    int32
	k         uint8
}

func initSubexp(c *byteCursor, valueKind ValueKind) (Codec, error) {
	offset, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: subexp: offset")
	}
	k, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: subexp: k")
	}
	return &subexpCodec{valueKind: valueKind, offset: offset, k: uint8(k)}, nil
}

func (c *subexpCodec) Kind() Kind           { return KindSubexp }
func (c *subexpCodec) ValueKind() ValueKind { return c.valueKind }

func (c *subexpCodec) Store(int) []byte {
	out := bitio.WriteITF8(c.offset)
	return append(out, bitio.WriteITF8(int32(c.k))...)
}

func (c *subexpCodec) DecodeInt(src *Source) (int64, error) {
	i, err := src.Core.ReadOneRun()
	if err != nil {
		return 0, errors.Wrap(err, "codec: subexp: i")
	}
	var nbits uint8
	if i > 0 {
		nbits = c.k + uint8(i) - 1
	} else {
		nbits = c.k
	}
	var mantissa uint64
	if nbits > 0 {
		mantissa, err = src.Core.ReadBits(nbits)
		if err != nil {
			return 0, errors.Wrap(err, "codec: subexp: mantissa")
		}
	}
	var x uint64
	if i > 0 {
		x = (uint64(1) << (c.k + uint8(i) - 1)) + mantissa
	} else {
		x = mantissa
	}
	return int64(x) - int64(c.offset), nil
}

func (c *subexpCodec) EncodeInt(sink *Sink, v int64) error {
	x := uint64(v + int64(c.offset))
	k := uint64(c.k)
	if x < (uint64(1) << k) {
		if err := sink.Core.WriteOneRun(0); err != nil {
			return err
		}
		if k > 0 {
			return sink.Core.WriteBits(x, c.k)
		}
		return nil
	}
	// find minimal i>=1 such that x < 1<<(k+i)
	var i uint64 = 1
	for x >= (uint64(1) << (k + i)) {
		i++
	}
	if err := sink.Core.WriteOneRun(i); err != nil {
		return err
	}
	nbits := uint8(k + i - 1)
	mantissa := x - (uint64(1) << (k + i - 1))
	return sink.Core.WriteBits(mantissa, nbits)
}
