package bitio

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/cramerr"
)

// ReadLTF8 decodes a 64-bit signed integer stored in LTF-8 form, the
// 64-bit analogue of ITF-8: the count of leading 1 bits in the first byte
// (0-8) gives the number of following bytes.
func ReadLTF8(r io.ByteReader) (int64, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, errors.Wrap(cramerr.ErrMalformedVarint, err.Error())
	}
	if b0&0x80 == 0 {
		return int64(b0), nil
	}

	nOnes := 0
	for nOnes < 8 && b0&(0x80>>uint(nOnes)) != 0 {
		nOnes++
	}

	var v uint64
	if nOnes < 8 {
		v = uint64(b0) & (uint64(1)<<(7-uint(nOnes)) - 1)
	}
	for i := 0; i < nOnes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(cramerr.ErrMalformedVarint, err.Error())
		}
		v = v<<8 | uint64(b)
	}
	return int64(v), nil
}

// WriteLTF8 encodes v into the shortest LTF-8 form (1-9 bytes).
func WriteLTF8(v int64) []byte {
	u := uint64(v)
	switch {
	case u&^mask(7) == 0:
		return []byte{byte(u)}
	case u&^mask(14) == 0:
		return []byte{byte(u>>8) | 0x80, byte(u)}
	case u&^mask(21) == 0:
		return []byte{byte(u>>16) | 0xc0, byte(u >> 8), byte(u)}
	case u&^mask(28) == 0:
		return []byte{byte(u>>24) | 0xe0, byte(u >> 16), byte(u >> 8), byte(u)}
	case u&^mask(35) == 0:
		return []byte{byte(u>>32) | 0xf0, byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u&^mask(42) == 0:
		return []byte{byte(u>>40) | 0xf8, byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u&^mask(49) == 0:
		return []byte{byte(u>>48) | 0xfc, byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u&^mask(56) == 0:
		return []byte{0xfe, byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	default:
		return []byte{0xff, byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	}
}

func mask(n uint) uint64 {
	return uint64(1)<<n - 1
}
