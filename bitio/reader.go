package bitio

import (
	"io"

	"github.com/icza/bitio"
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/cramerr"
)

// Reader reads an MSB-first bitstream over a contiguous byte buffer,
// tracking the number of bits consumed so callers can report a
// (byte_index, bit_index) position.
type Reader struct {
	br      *bitio.Reader
	nread   uint64 // total bits read so far
	srcSize int64  // -1 if unknown
}

// NewReader returns a bit reader over r. If r also implements a Len method
// (as bytes.Reader does), its length at construction is recorded in
// srcSize; otherwise the size is left unknown. TruncatedInput errors carry
// only the underlying read error, not this size.
func NewReader(r io.Reader) *Reader {
	size := int64(-1)
	if lr, ok := r.(interface{ Len() int }); ok {
		size = int64(lr.Len())
	}
	return &Reader{br: bitio.NewReader(r), srcSize: size}
}

// Pos returns the (byteIndex, bitIndex) cursor, bitIndex counting 7 down to
// 0 (MSB first) within the current byte.
func (r *Reader) Pos() (byteIndex int64, bitIndex uint8) {
	return int64(r.nread / 8), uint8(7 - r.nread%8)
}

func wrapTruncated(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(cramerr.ErrTruncatedInput, err.Error())
}

// ReadBits reads an unsigned value of n bits, 1 <= n <= 64, MSB first.
func (r *Reader) ReadBits(n uint8) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, errors.Errorf("bitio: ReadBits: invalid bit count %d", n)
	}
	v, err := r.br.ReadBits(n)
	if err != nil {
		return 0, wrapTruncated(err)
	}
	r.nread += uint64(n)
	return v, nil
}

// ReadBool reads a single bit as a boolean.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.br.ReadBool()
	if err != nil {
		return false, wrapTruncated(err)
	}
	r.nread++
	return b, nil
}

// ReadZeroRun returns the count of successive 0 bits preceding (and not
// including) the first 1 bit.
func (r *Reader) ReadZeroRun() (uint64, error) {
	var n uint64
	for {
		b, err := r.ReadBool()
		if err != nil {
			return 0, err
		}
		if b {
			return n, nil
		}
		n++
	}
}

// ReadOneRun returns the count of successive 1 bits preceding (and not
// including) the first 0 bit.
func (r *Reader) ReadOneRun() (uint64, error) {
	var n uint64
	for {
		b, err := r.ReadBool()
		if err != nil {
			return 0, err
		}
		if !b {
			return n, nil
		}
		n++
	}
}

// Align discards bits until the cursor is byte-aligned, returning the
// discarded bit count.
func (r *Reader) Align() (uint8, error) {
	_, bitIndex := r.Pos()
	if bitIndex == 7 {
		return 0, nil
	}
	n := bitIndex + 1
	if _, err := r.ReadBits(n); err != nil {
		return 0, err
	}
	return n, nil
}
