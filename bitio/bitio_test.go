package bitio_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-cram/gocram/bitio"
)

func TestReadWriteBits(t *testing.T) {
	buf := new(bytes.Buffer)
	w := bitio.NewWriter(buf)
	vals := []struct {
		v uint64
		n uint8
	}{
		{0x1, 1},
		{0x0, 1},
		{0x2a, 6},
		{0xffffffff, 32},
		{0x1ffffffffff, 41},
	}
	for _, tc := range vals {
		if err := w.WriteBits(tc.v, tc.n); err != nil {
			t.Fatalf("WriteBits(%d, %d): %v", tc.v, tc.n, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
	for _, tc := range vals {
		got, err := r.ReadBits(tc.n)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", tc.n, err)
		}
		if got != tc.v {
			t.Errorf("ReadBits(%d) = %#x, want %#x", tc.n, got, tc.v)
		}
	}
}

func TestZeroOneRun(t *testing.T) {
	for _, want := range []uint64{0, 1, 2, 5, 63, 200} {
		buf := new(bytes.Buffer)
		w := bitio.NewWriter(buf)
		if err := w.WriteZeroRun(want); err != nil {
			t.Fatalf("WriteZeroRun(%d): %v", want, err)
		}
		if err := w.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
		got, err := r.ReadZeroRun()
		if err != nil {
			t.Fatalf("ReadZeroRun: %v", err)
		}
		if got != want {
			t.Errorf("ReadZeroRun = %d, want %d", got, want)
		}
	}

	for _, want := range []uint64{0, 1, 2, 5, 63} {
		buf := new(bytes.Buffer)
		w := bitio.NewWriter(buf)
		if err := w.WriteOneRun(want); err != nil {
			t.Fatalf("WriteOneRun(%d): %v", want, err)
		}
		if err := w.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
		got, err := r.ReadOneRun()
		if err != nil {
			t.Fatalf("ReadOneRun: %v", err)
		}
		if got != want {
			t.Errorf("ReadOneRun = %d, want %d", got, want)
		}
	}
}

func TestITF8RoundTrip(t *testing.T) {
	samples := []int32{
		0, 1, -1, 63, 64, 127, 128, 8191, 8192, 1 << 20, -(1 << 20),
		math.MaxInt32, math.MinInt32, 1<<27 - 1, 1 << 27,
	}
	for _, want := range samples {
		enc := bitio.WriteITF8(want)
		if len(enc) > 5 {
			t.Errorf("WriteITF8(%d): encoded length %d > 5", want, len(enc))
		}
		got, err := bitio.ReadITF8(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadITF8(%v): %v", enc, err)
		}
		if got != want {
			t.Errorf("ITF8 round trip: got %d, want %d (encoded %v)", got, want, enc)
		}
	}
}

func TestLTF8RoundTrip(t *testing.T) {
	samples := []int64{
		0, 1, -1, 127, 128, 1 << 20, -(1 << 20),
		math.MaxInt64, math.MinInt64, 1<<55 - 1, 1 << 55,
	}
	for _, want := range samples {
		enc := bitio.WriteLTF8(want)
		if len(enc) > 9 {
			t.Errorf("WriteLTF8(%d): encoded length %d > 9", want, len(enc))
		}
		got, err := bitio.ReadLTF8(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadLTF8(%v): %v", enc, err)
		}
		if got != want {
			t.Errorf("LTF8 round trip: got %d, want %d (encoded %v)", got, want, enc)
		}
	}
}

func TestReadTruncated(t *testing.T) {
	r := bitio.NewReader(bytes.NewReader(nil))
	if _, err := r.ReadBits(8); err == nil {
		t.Fatal("expected error reading from empty buffer")
	}
}
