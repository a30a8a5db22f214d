package slice

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/cramerr"
)

// Header is a slice header: spec.md §4.5 step 1's
// (ref_seq_id, ref_seq_start, ref_seq_span, num_records, num_blocks,
// num_content_ids, content_ids[], ref_base_id_if_mapped, md5[16],
// optional_tags).
type Header struct {
	RefSeqID     int32
	RefSeqStart  int32
	RefSeqSpan   int32
	NumRecords   int32
	NumBlocks    int32
	ContentIDs   []int32
	RefBaseID    int32
	MD5          [16]byte
	OptionalTags []byte
}

// MultiRef reports whether this slice spans more than one reference
// sequence, per spec.md §4.5 step 6 ("if multi-reference container,
// decode RI").
const MultiRefSentinel int32 = -2

func (h *Header) MultiRef() bool { return h.RefSeqID == MultiRefSentinel }

// ReadHeader parses a slice header from its (already uncompressed)
// block, rejecting duplicate content ids per spec.md §4.5 step 2.
func ReadHeader(b *block.Block) (*Header, error) {
	if err := b.Uncompress(); err != nil {
		return nil, errors.Wrap(err, "slice: uncompress header block")
	}
	br, err := newBlockByteReader(b)
	if err != nil {
		return nil, err
	}

	h := new(Header)
	if h.RefSeqID, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: ref_seq_id")
	}
	if h.RefSeqStart, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: ref_seq_start")
	}
	if h.RefSeqSpan, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: ref_seq_span")
	}
	if h.NumRecords, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: num_records")
	}
	if h.NumBlocks, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: num_blocks")
	}
	numContentIDs, err := bitio.ReadITF8(br)
	if err != nil {
		return nil, errors.Wrap(err, "slice: num_content_ids")
	}
	seen := make(map[int32]bool, numContentIDs)
	h.ContentIDs = make([]int32, numContentIDs)
	for i := range h.ContentIDs {
		id, err := bitio.ReadITF8(br)
		if err != nil {
			return nil, errors.Wrap(err, "slice: content id")
		}
		if seen[id] {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "slice: duplicate content id %d", id)
		}
		seen[id] = true
		h.ContentIDs[i] = id
	}
	if h.RefBaseID, err = bitio.ReadITF8(br); err != nil {
		return nil, errors.Wrap(err, "slice: ref_base_id")
	}
	md5, err := br.readN(16)
	if err != nil {
		return nil, errors.Wrap(err, "slice: md5")
	}
	copy(h.MD5[:], md5)
	h.OptionalTags = br.rest()
	return h, nil
}

// WriteBlock serialises h in the same field order ReadHeader expects,
// wrapped as a raw mapped-slice-header block.
func (h *Header) WriteBlock() *block.Block {
	var buf []byte
	buf = append(buf, bitio.WriteITF8(h.RefSeqID)...)
	buf = append(buf, bitio.WriteITF8(h.RefSeqStart)...)
	buf = append(buf, bitio.WriteITF8(h.RefSeqSpan)...)
	buf = append(buf, bitio.WriteITF8(h.NumRecords)...)
	buf = append(buf, bitio.WriteITF8(h.NumBlocks)...)
	buf = append(buf, bitio.WriteITF8(int32(len(h.ContentIDs)))...)
	for _, id := range h.ContentIDs {
		buf = append(buf, bitio.WriteITF8(id)...)
	}
	buf = append(buf, bitio.WriteITF8(h.RefBaseID)...)
	buf = append(buf, h.MD5[:]...)
	buf = append(buf, h.OptionalTags...)
	return block.NewRawBlock(block.ContentMappedSliceHeader, 0, buf)
}

// blockByteReader adapts *block.Block's ReadByte to also expose "read
// the rest" for the header's trailing optional_tags blob.
type blockByteReader struct {
	b   *block.Block
	buf []byte
}

func newBlockByteReader(b *block.Block) (*blockByteReader, error) {
	rest, err := b.ReadBytes(int(b.UncompressedSize))
	if err != nil {
		return nil, err
	}
	return &blockByteReader{b: b, buf: rest}, nil
}

func (r *blockByteReader) ReadByte() (byte, error) {
	if len(r.buf) == 0 {
		return 0, errors.Wrap(cramerr.ErrTruncatedInput, "slice: header: unexpected end")
	}
	c := r.buf[0]
	r.buf = r.buf[1:]
	return c, nil
}

func (r *blockByteReader) readN(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "slice: header: unexpected end")
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *blockByteReader) rest() []byte {
	out := r.buf
	r.buf = nil
	return out
}
