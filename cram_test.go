package gocram

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/container"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/refprovider"
	"github.com/go-cram/gocram/slice"
)

// TestWriterReaderRoundTripUnmapped exercises spec.md §8 scenario 2: a
// single unmapped read, written then read back through the full
// container/slice pipeline.
func TestWriterReaderRoundTripUnmapped(t *testing.T) {
	var buf bytes.Buffer
	opts := cramopts.Default()

	w, err := NewWriter(&buf, nil, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	in := &bamrec.Record{
		RefID: -1,
		Flag:  4, // UNMAP
		Name:  "r1",
		Seq:   []byte("ACGT"),
		Qual:  []byte{30, 30, 30, 30},
	}
	if err := w.WriteRecord(in); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(bytes.NewReader(buf.Bytes()), nil, opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := rd.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Name != in.Name || !bytes.Equal(got.Seq, in.Seq) || !bytes.Equal(got.Qual, in.Qual) {
		t.Errorf("got %+v, want name/seq/qual matching %+v", got, in)
	}
	if got.RefID != -1 || got.TLen != 0 {
		t.Errorf("got RefID=%d TLen=%d, want -1/0 for an unmapped read", got.RefID, got.TLen)
	}

	if _, err := rd.Next(); err != io.EOF {
		t.Errorf("second Next: err = %v, want io.EOF", err)
	}
}

// TestWriterReaderRoundTripMapped covers a mapped, coordinate-matching
// read against a real reference provider.
func TestWriterReaderRoundTripMapped(t *testing.T) {
	var buf bytes.Buffer
	opts := cramopts.Default()
	refs := refprovider.NewInMemory(map[int32][]byte{0: bytes.Repeat([]byte("ACGT"), 100)})

	w, err := NewWriter(&buf, refs, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	in := &bamrec.Record{
		RefID: 0,
		Pos:   100,
		Name:  "r2",
		Seq:   []byte("ACGTACGT"),
		Cigar: []bamrec.CigarOp{{Op: 'M', Length: 8}},
		MapQ:  50,
	}
	if err := w.WriteRecord(in); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(bytes.NewReader(buf.Bytes()), refs, opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := rd.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.RefID != 0 || got.Pos != 100 || !bytes.Equal(got.Seq, in.Seq) {
		t.Errorf("got RefID=%d Pos=%d Seq=%q, want 0/100/%q", got.RefID, got.Pos, got.Seq, in.Seq)
	}
	if got.MapQ != in.MapQ {
		t.Errorf("MapQ = %d, want %d", got.MapQ, in.MapQ)
	}

	if _, err := rd.Next(); err != io.EOF {
		t.Errorf("second Next: err = %v, want io.EOF", err)
	}
}

// TestWriterReaderRoundTripPaired covers spec.md §8 scenario 3: two
// mapped mates in the same slice, each carrying the other's coordinates
// and an opposite-signed template length. Every paired record is
// written CFDetached, so these fields round-trip untouched by mate
// resolution rather than being recomputed from a mate_line chain.
func TestWriterReaderRoundTripPaired(t *testing.T) {
	var buf bytes.Buffer
	opts := cramopts.Default()
	refs := refprovider.NewInMemory(map[int32][]byte{0: bytes.Repeat([]byte("ACGT"), 100)})

	w, err := NewWriter(&buf, refs, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	r1 := &bamrec.Record{
		RefID:   0,
		Pos:     100,
		Flag:    uint16(slice.FlagPaired | slice.FlagRead1),
		Name:    "p1",
		Seq:     []byte("ACGTACGT"),
		Cigar:   []bamrec.CigarOp{{Op: 'M', Length: 8}},
		MapQ:    40,
		MateRef: 0,
		MatePos: 205,
		TLen:    105,
	}
	r2 := &bamrec.Record{
		RefID:   0,
		Pos:     205,
		Flag:    uint16(slice.FlagPaired | slice.FlagRead2),
		Name:    "p2",
		Seq:     []byte("ACGTACGT"),
		Cigar:   []bamrec.CigarOp{{Op: 'M', Length: 8}},
		MapQ:    40,
		MateRef: 0,
		MatePos: 100,
		TLen:    -105,
	}
	if err := w.WriteRecord(r1); err != nil {
		t.Fatalf("WriteRecord r1: %v", err)
	}
	if err := w.WriteRecord(r2); err != nil {
		t.Fatalf("WriteRecord r2: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(bytes.NewReader(buf.Bytes()), refs, opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got1, err := rd.Next()
	if err != nil {
		t.Fatalf("Next (r1): %v", err)
	}
	got2, err := rd.Next()
	if err != nil {
		t.Fatalf("Next (r2): %v", err)
	}
	if got1.MatePos != r1.MatePos || got1.TLen != r1.TLen {
		t.Errorf("r1: MatePos=%d TLen=%d, want %d/%d", got1.MatePos, got1.TLen, r1.MatePos, r1.TLen)
	}
	if got2.MatePos != r2.MatePos || got2.TLen != r2.TLen {
		t.Errorf("r2: MatePos=%d TLen=%d, want %d/%d", got2.MatePos, got2.TLen, r2.MatePos, r2.TLen)
	}
	if got1.Flag&uint16(slice.FlagPaired) == 0 || got2.Flag&uint16(slice.FlagPaired) == 0 {
		t.Error("expected FlagPaired set on both records")
	}

	if _, err := rd.Next(); err != io.EOF {
		t.Errorf("third Next: err = %v, want io.EOF", err)
	}
}

// TestReaderPooledDecodePreservesOrder builds a container with several
// slices by hand and decodes it with NThreads > 1, confirming
// fillQueue's worker-pool dispatch through container.RunOrdered still
// hands records back in file order.
func TestReaderPooledDecodePreservesOrder(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	enc := slice.NewEncoder(header, cramopts.Default(), nil)
	cw := container.NewWriter(header, 3)

	const numSlices = 6
	for s := 0; s < numSlices; s++ {
		rec := &bamrec.Record{
			RefID: -1,
			Flag:  4, // UNMAP
			Name:  "slice" + string(rune('0'+s)),
			Seq:   []byte("ACGT"),
		}
		shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{rec})
		if err != nil {
			t.Fatalf("EncodeRecords %d: %v", s, err)
		}
		if err := cw.AddSlice(shdr, blocks); err != nil {
			t.Fatalf("AddSlice %d: %v", s, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(container.FileMagic)
	buf.Write([]byte{3, 0})
	var fileID container.FileID
	buf.Write(fileID[:])
	if _, err := cw.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := container.WriteEOFContainer(&buf); err != nil {
		t.Fatalf("WriteEOFContainer: %v", err)
	}

	opts := cramopts.Default()
	opts.NThreads = 3
	rd, err := NewReader(bytes.NewReader(buf.Bytes()), nil, opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	for s := 0; s < numSlices; s++ {
		got, err := rd.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", s, err)
		}
		want := "slice" + string(rune('0'+s))
		if got.Name != want {
			t.Errorf("record %d: Name = %q, want %q (pooled decode must preserve file order)", s, got.Name, want)
		}
	}
	if _, err := rd.Next(); err != io.EOF {
		t.Errorf("final Next: err = %v, want io.EOF", err)
	}
}

// TestReaderEmptyContainerEOF covers spec.md §8 scenario 1: a valid file
// header followed directly by the terminating zero-length container.
func TestReaderEmptyContainerEOF(t *testing.T) {
	var buf bytes.Buffer
	opts := cramopts.Default()

	w, err := NewWriter(&buf, nil, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(bytes.NewReader(buf.Bytes()), nil, opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := rd.Next(); err != io.EOF {
		t.Errorf("Next on empty file: err = %v, want io.EOF", err)
	}
}
