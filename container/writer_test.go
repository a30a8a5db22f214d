package container

import (
	"bytes"
	"testing"

	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/slice"
)

func TestContainerWriterReaderRoundTrip(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	w := NewWriter(header, 3)

	shdr := &slice.Header{RefSeqID: -1, NumRecords: 1, NumBlocks: 1}
	coreBlock := block.NewRawBlock(block.ContentCore, 0, []byte{1, 2, 3})
	if err := w.AddSlice(shdr, []*block.Block{coreBlock}); err != nil {
		t.Fatalf("AddSlice: %v", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.EOFContainer() {
		t.Fatal("container has data but reports EOFContainer")
	}
	if len(h.Landmarks) != 1 || h.Landmarks[0] != 0 {
		t.Errorf("Landmarks = %v, want [0]", h.Landmarks)
	}

	chBlock, err := block.ReadBlock(&buf, true)
	if err != nil {
		t.Fatalf("read compression header block: %v", err)
	}
	if chBlock.ContentType != block.ContentCompressionHeader {
		t.Errorf("ContentType = %v, want ContentCompressionHeader", chBlock.ContentType)
	}

	shdrBlock, err := block.ReadBlock(&buf, true)
	if err != nil {
		t.Fatalf("read slice header block: %v", err)
	}
	gotShdr, err := slice.ReadHeader(shdrBlock)
	if err != nil {
		t.Fatalf("slice.ReadHeader: %v", err)
	}
	if gotShdr.RefSeqID != -1 || gotShdr.NumRecords != 1 {
		t.Errorf("slice header = %+v, want RefSeqID=-1 NumRecords=1", gotShdr)
	}

	dataBlock, err := block.ReadBlock(&buf, true)
	if err != nil {
		t.Fatalf("read core block: %v", err)
	}
	if dataBlock.ContentType != block.ContentCore {
		t.Errorf("ContentType = %v, want ContentCore", dataBlock.ContentType)
	}
}

func TestWriteEOFContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEOFContainer(&buf); err != nil {
		t.Fatalf("WriteEOFContainer: %v", err)
	}
	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !h.EOFContainer() {
		t.Error("expected EOFContainer() true for zero-length container")
	}
}

func TestContainerWriterMultipleSlicesLandmarks(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	w := NewWriter(header, 3)

	for i := 0; i < 3; i++ {
		shdr := &slice.Header{RefSeqID: -1, NumRecords: 1, NumBlocks: 1}
		b := block.NewRawBlock(block.ContentCore, 0, bytes.Repeat([]byte{byte(i)}, 5))
		if err := w.AddSlice(shdr, []*block.Block{b}); err != nil {
			t.Fatalf("AddSlice %d: %v", i, err)
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(h.Landmarks) != 3 {
		t.Fatalf("got %d landmarks, want 3", len(h.Landmarks))
	}
	for i := 1; i < len(h.Landmarks); i++ {
		if h.Landmarks[i] <= h.Landmarks[i-1] {
			t.Errorf("landmarks not strictly increasing: %v", h.Landmarks)
		}
	}
}
