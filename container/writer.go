package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/slice"
)

// Writer assembles one container: a shared compression header plus a
// sequence of slices, tracking each slice's byte offset for the
// container header's landmarks table (spec.md §6's container layout,
// the encode-side counterpart of Reader/NextSlice).
type Writer struct {
	body        bytes.Buffer // compression header block + all slice bytes, in file order
	dataStart   int          // body length right after the compression header block
	landmarks   []int32
	numRecords  int32
	numBlocks   int32
	refSeqID    int32
	refStart    int32
	refEnd      int32
	sawAnySlice bool
}

// NewWriter starts a container against a fixed compression header,
// written once as the first block of the container body.
func NewWriter(compHeader *cramhdr.CompressionHeader, version int) *Writer {
	w := &Writer{refSeqID: -1, numBlocks: 1}
	chBlock := compHeader.WriteBlock(version)
	_, _ = chBlock.WriteTo(&w.body, true) // bytes.Buffer never errors
	w.dataStart = w.body.Len()
	return w
}

// AddSlice appends one slice (header block + data blocks) to the
// container body, recording its landmark offset relative to the start
// of the first slice (i.e. right after the compression header block).
func (w *Writer) AddSlice(shdr *slice.Header, blocks []*block.Block) error {
	offset := int32(w.body.Len() - w.dataStart)
	w.landmarks = append(w.landmarks, offset)

	shdrBlock := shdr.WriteBlock()
	if _, err := shdrBlock.WriteTo(&w.body, true); err != nil {
		return errors.Wrap(err, "container: write slice header block")
	}
	for _, b := range blocks {
		if _, err := b.WriteTo(&w.body, true); err != nil {
			return errors.Wrap(err, "container: write slice block")
		}
	}
	w.numBlocks += 1 + int32(len(blocks))

	w.numRecords += shdr.NumRecords
	if !shdr.MultiRef() && shdr.RefSeqID >= 0 {
		if !w.sawAnySlice {
			w.refSeqID = shdr.RefSeqID
			w.refStart = shdr.RefSeqStart
			w.refEnd = shdr.RefSeqStart + shdr.RefSeqSpan
		} else if w.refSeqID == shdr.RefSeqID {
			if shdr.RefSeqStart < w.refStart {
				w.refStart = shdr.RefSeqStart
			}
			if end := shdr.RefSeqStart + shdr.RefSeqSpan; end > w.refEnd {
				w.refEnd = end
			}
		} else {
			w.refSeqID = slice.MultiRefSentinel
		}
	} else if shdr.MultiRef() {
		w.refSeqID = slice.MultiRefSentinel
	}
	w.sawAnySlice = true
	return nil
}

// Empty reports whether any slice has been added yet; a caller should
// skip WriteTo entirely rather than emit a container with no slices.
func (w *Writer) Empty() bool { return len(w.landmarks) == 0 }

// WriteTo serialises the full container (header + body) to out. The
// header's length field counts the body bytes only (the compression
// header block and every slice), not the header itself.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	h := &Header{
		RefSeqID:      w.refSeqID,
		NumRecords:    w.numRecords,
		RecordCounter: 0,
		NumBlocks:     w.numBlocks,
		Landmarks:     w.landmarks,
	}
	if w.refSeqID >= 0 {
		h.RefSeqStart = w.refStart
		h.RefSeqSpan = w.refEnd - w.refStart
	}

	var hdrBuf bytes.Buffer
	writeHeaderFields(&hdrBuf, h, int32(w.body.Len()))
	n1, err := out.Write(hdrBuf.Bytes())
	if err != nil {
		return int64(n1), err
	}
	n2, err := out.Write(w.body.Bytes())
	return int64(n1 + n2), err
}

// writeHeaderFields writes a container header whose Length is the
// given body length, computing and appending the trailing CRC32.
func writeHeaderFields(buf *bytes.Buffer, h *Header, bodyLen int32) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(bodyLen))

	var fields bytes.Buffer
	fields.Write(lenBuf[:])
	fields.Write(bitio.WriteITF8(h.RefSeqID))
	fields.Write(bitio.WriteITF8(h.RefSeqStart))
	fields.Write(bitio.WriteITF8(h.RefSeqSpan))
	fields.Write(bitio.WriteITF8(h.NumRecords))
	fields.Write(bitio.WriteLTF8(h.RecordCounter))
	fields.Write(bitio.WriteITF8(h.NumBlocks))
	fields.Write(bitio.WriteITF8(int32(len(h.Landmarks))))
	for _, lm := range h.Landmarks {
		fields.Write(bitio.WriteITF8(lm))
	}

	sum := crc32.ChecksumIEEE(fields.Bytes())
	buf.Write(fields.Bytes())
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], sum)
	buf.Write(crcBuf[:])
}

// WriteEOFContainer writes the zero-length terminator container every
// well-formed CRAM file ends with (spec.md §8 scenario 1).
func WriteEOFContainer(out io.Writer) error {
	h := &Header{RefSeqID: -1}
	var buf bytes.Buffer
	writeHeaderFields(&buf, h, 0)
	_, err := out.Write(buf.Bytes())
	return err
}
