package bitio

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/cramerr"
)

// ReadITF8 decodes a 32-bit signed integer stored in ITF-8 form: the count
// of leading 1 bits in the first byte gives the total encoded length (1-5
// bytes). A length-5 encoding spends only the low nibble of both the first
// and last byte on value bits.
func ReadITF8(r io.ByteReader) (int32, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, errors.Wrap(cramerr.ErrMalformedVarint, err.Error())
	}
	switch {
	case b0&0x80 == 0:
		return int32(b0), nil
	case b0&0x40 == 0:
		b1, err := r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(cramerr.ErrMalformedVarint, err.Error())
		}
		return int32(b0&0x3f)<<8 | int32(b1), nil
	case b0&0x20 == 0:
		b1, e1 := r.ReadByte()
		b2, e2 := r.ReadByte()
		if e1 != nil || e2 != nil {
			return 0, cramerr.ErrMalformedVarint
		}
		return int32(b0&0x1f)<<16 | int32(b1)<<8 | int32(b2), nil
	case b0&0x10 == 0:
		b1, e1 := r.ReadByte()
		b2, e2 := r.ReadByte()
		b3, e3 := r.ReadByte()
		if e1 != nil || e2 != nil || e3 != nil {
			return 0, cramerr.ErrMalformedVarint
		}
		return int32(b0&0x0f)<<24 | int32(b1)<<16 | int32(b2)<<8 | int32(b3), nil
	default:
		b1, e1 := r.ReadByte()
		b2, e2 := r.ReadByte()
		b3, e3 := r.ReadByte()
		b4, e4 := r.ReadByte()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return 0, cramerr.ErrMalformedVarint
		}
		// The 5-byte form packs 4+8+8+8+4 = 32 value bits: the low nibble
		// of the first byte and the low nibble of the last byte.
		v := uint32(b0&0x0f)<<28 | uint32(b1)<<20 | uint32(b2)<<12 | uint32(b3)<<4 | uint32(b4&0x0f)
		return int32(v), nil
	}
}

// WriteITF8 encodes v into the shortest ITF-8 form (1-5 bytes) and returns
// the encoded bytes.
func WriteITF8(v int32) []byte {
	u := uint32(v)
	switch {
	case u&^0x7f == 0:
		return []byte{byte(u)}
	case u&^0x3fff == 0:
		return []byte{byte(u>>8) | 0x80, byte(u)}
	case u&^0x1fffff == 0:
		return []byte{byte(u>>16) | 0xc0, byte(u >> 8), byte(u)}
	case u&^0x0fffffff == 0:
		return []byte{byte(u>>24) | 0xe0, byte(u >> 16), byte(u >> 8), byte(u)}
	default:
		return []byte{0xf0 | byte(u>>28), byte(u >> 20), byte(u >> 12), byte(u >> 4), byte(u) & 0x0f}
	}
}
