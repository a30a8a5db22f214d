// Package container implements CRAM's container pipeline: the
// container header, the file-order-preserving slice iterator, and the
// bounded worker pool slice decode/encode may run under.
package container

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// Header is a container header, spec.md §4.6/§6's
// (length, ref_seq_id, ref_seq_start, ref_seq_span, num_records,
// record_counter, num_blocks, num_landmarks, landmarks[], crc32) tuple.
type Header struct {
	Length        int32
	RefSeqID      int32
	RefSeqStart   int32
	RefSeqSpan    int32
	NumRecords    int32
	RecordCounter int64
	NumBlocks     int32
	Landmarks     []int32
	CRC32         uint32
}

// ReadHeader parses one container header from r. The header's own CRC32
// covers every preceding byte of the header (not the compression header
// or slices that follow), per spec.md §6.
func ReadHeader(r io.Reader) (*Header, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)
	br := newByteReader(tr)

	h := new(Header)
	var lenBuf [4]byte
	if _, err := io.ReadFull(tr, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "container: length")
	}
	h.Length = int32(binary.LittleEndian.Uint32(lenBuf[:]))

	var err error
	if h.RefSeqID, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "container: ref_seq_id")
	}
	if h.RefSeqStart, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "container: ref_seq_start")
	}
	if h.RefSeqSpan, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "container: ref_seq_span")
	}
	if h.NumRecords, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "container: num_records")
	}
	if h.RecordCounter, err = bitio.ReadLTF8(br); err != nil {
		return nil, errors.Wrap(err, "container: record_counter")
	}
	if h.NumBlocks, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "container: num_blocks")
	}
	numLandmarks, err := bitio.ReadITF8(br)
	if err != nil {
		return nil, errors.Wrap(err, "container: num_landmarks")
	}
	h.Landmarks = make([]int32, numLandmarks)
	for i := range h.Landmarks {
		if h.Landmarks[i], err = bitio.ReadITF8(br); err != nil {
			return nil, errors.Wrap(err, "container: landmark")
		}
	}

	sum := crc.Sum32()
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "container: crc32")
	}
	h.CRC32 = binary.LittleEndian.Uint32(crcBuf[:])
	if h.CRC32 != sum {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "container: crc32 mismatch: header %08x, computed %08x", h.CRC32, sum)
	}

	return h, nil
}

// EOFContainer reports whether h is the zero-length terminator
// container every well-formed CRAM file ends with (spec.md §8 scenario
// 1: "valid file header + a single zero-length container").
func (h *Header) EOFContainer() bool {
	return h.Length == 0
}

type byteReader struct {
	r io.Reader
}

func newByteReader(r io.Reader) *byteReader { return &byteReader{r: r} }

func (b *byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, errors.Wrap(cramerr.ErrTruncatedInput, "container: unexpected end")
		}
		return 0, err
	}
	return buf[0], nil
}
