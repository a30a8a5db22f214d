package bitio

import (
	"io"

	"github.com/icza/bitio"
)

// Writer writes an MSB-first bitstream, growing the underlying writer on
// demand.
type Writer struct {
	bw       *bitio.Writer
	nwritten uint64
}

// NewWriter returns a bit writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bitio.NewWriter(w)}
}

// Pos returns the (byteIndex, bitIndex) cursor of the next bit to be
// written.
func (w *Writer) Pos() (byteIndex int64, bitIndex uint8) {
	return int64(w.nwritten / 8), uint8(7 - w.nwritten%8)
}

// WriteBits stores the low n bits of v, 1 <= n <= 64, MSB first.
func (w *Writer) WriteBits(v uint64, n uint8) error {
	if err := w.bw.WriteBits(v, n); err != nil {
		return err
	}
	w.nwritten += uint64(n)
	return nil
}

// WriteBool writes a single bit.
func (w *Writer) WriteBool(b bool) error {
	if err := w.bw.WriteBool(b); err != nil {
		return err
	}
	w.nwritten++
	return nil
}

// WriteZeroRun writes n zero bits followed by a terminating one bit.
func (w *Writer) WriteZeroRun(n uint64) error {
	for ; n > 0; n-- {
		if err := w.WriteBool(false); err != nil {
			return err
		}
	}
	return w.WriteBool(true)
}

// WriteOneRun writes n one bits followed by a terminating zero bit.
func (w *Writer) WriteOneRun(n uint64) error {
	for ; n > 0; n-- {
		if err := w.WriteBool(true); err != nil {
			return err
		}
	}
	return w.WriteBool(false)
}

// Flush pads the current byte with zero bits so the next write starts
// byte-aligned, and pushes the completed byte to the underlying writer.
// The underlying writer's Close is not invoked even if it implements
// io.Closer, since a block's byte buffer may still receive further writes
// (e.g. a trailing CRC) after the bitstream portion is flushed.
func (w *Writer) Flush() error {
	_, bitIndex := w.Pos()
	if bitIndex != 7 {
		if err := w.WriteBits(0, bitIndex+1); err != nil {
			return err
		}
	}
	// bitio.Writer.Close writes out buffered bytes, including those held in
	// the bufio wrapper it puts around a target without WriteByte, and does
	// not close the underlying writer.
	return w.bw.Close()
}
