package container

import (
	"bytes"
	"testing"

	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/slice"
)

// TestReaderRangeSkipsNonOverlappingContainer builds a two-container
// file, one container per reference, and checks that restricting
// opts.Range to the second reference skips the first container
// entirely rather than surfacing its slice.
func TestReaderRangeSkipsNonOverlappingContainer(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()

	var buf bytes.Buffer
	buf.WriteString(FileMagic)
	buf.Write([]byte{3, 0})
	var fileID FileID
	buf.Write(fileID[:])

	writeOneSliceContainer := func(refID, start, span int32) {
		w := NewWriter(header, 3)
		shdr := &slice.Header{
			RefSeqID:    refID,
			RefSeqStart: start,
			RefSeqSpan:  span,
			NumRecords:  1,
			NumBlocks:   1,
		}
		b := block.NewRawBlock(block.ContentCore, 0, []byte{1, 2, 3})
		if err := w.AddSlice(shdr, []*block.Block{b}); err != nil {
			t.Fatalf("AddSlice: %v", err)
		}
		if _, err := w.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
	}
	writeOneSliceContainer(0, 1, 10) // ref 0: [0, 10)
	writeOneSliceContainer(1, 1, 10) // ref 1: [0, 10)
	if err := WriteEOFContainer(&buf); err != nil {
		t.Fatalf("WriteEOFContainer: %v", err)
	}

	opts := cramopts.Default()
	opts.Range = &cramopts.Range{RefID: 1, Start: 0, End: 20}

	r, err := NewReader(bytes.NewReader(buf.Bytes()), opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	sh, err := r.NextSlice()
	if err != nil {
		t.Fatalf("NextSlice: %v", err)
	}
	if sh == nil {
		t.Fatal("NextSlice returned nil, want the ref-1 slice")
	}
	if sh.Header.RefSeqID != 1 {
		t.Errorf("RefSeqID = %d, want 1 (ref-0 container should have been skipped)", sh.Header.RefSeqID)
	}

	sh2, err := r.NextSlice()
	if err != nil {
		t.Fatalf("second NextSlice: %v", err)
	}
	if sh2 != nil {
		t.Errorf("second NextSlice = %+v, want nil (only one slice in range)", sh2)
	}
	if !r.EOF() {
		t.Error("expected EOF after the only in-range slice")
	}
}

// TestReaderRangeSkipsNonOverlappingSlice checks sliceOverlaps filtering
// within a single container: a container covering a superset range (so
// containerOverlaps passes) with one slice outside the requested range.
func TestReaderRangeSkipsNonOverlappingSlice(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()

	var buf bytes.Buffer
	buf.WriteString(FileMagic)
	buf.Write([]byte{3, 0})
	var fileID FileID
	buf.Write(fileID[:])

	w := NewWriter(header, 3)
	near := &slice.Header{RefSeqID: 0, RefSeqStart: 1, RefSeqSpan: 10, NumRecords: 1, NumBlocks: 1}
	far := &slice.Header{RefSeqID: 0, RefSeqStart: 1000, RefSeqSpan: 10, NumRecords: 1, NumBlocks: 1}
	if err := w.AddSlice(near, []*block.Block{block.NewRawBlock(block.ContentCore, 0, []byte{1})}); err != nil {
		t.Fatalf("AddSlice near: %v", err)
	}
	if err := w.AddSlice(far, []*block.Block{block.NewRawBlock(block.ContentCore, 0, []byte{2})}); err != nil {
		t.Fatalf("AddSlice far: %v", err)
	}
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := WriteEOFContainer(&buf); err != nil {
		t.Fatalf("WriteEOFContainer: %v", err)
	}

	opts := cramopts.Default()
	opts.Range = &cramopts.Range{RefID: 0, Start: 0, End: 20}

	r, err := NewReader(bytes.NewReader(buf.Bytes()), opts)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	sh, err := r.NextSlice()
	if err != nil {
		t.Fatalf("NextSlice: %v", err)
	}
	if sh == nil || sh.Header.RefSeqStart != 1 {
		t.Fatalf("NextSlice = %+v, want the near slice (RefSeqStart=1)", sh)
	}

	sh2, err := r.NextSlice()
	if err != nil {
		t.Fatalf("second NextSlice: %v", err)
	}
	if sh2 != nil {
		t.Errorf("second NextSlice = %+v, want nil (far slice out of range)", sh2)
	}
}
