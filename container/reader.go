package container

import (
	"io"

	"github.com/mewkiz/pkg/dbg"
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/slice"
)

// FileMagic is the 4-byte signature every CRAM file starts with,
// followed by {major, minor} version bytes and a 20-byte file id
// (spec.md §6).
const FileMagic = "CRAM"

// FileID is the 20-byte identifier CRAM stores after the version bytes,
// typically an MD5 of the first container (left opaque here).
type FileID [20]byte

// Reader pulls containers and slices from a CRAM byte stream in file
// order, applying range-based skipping at both the container and slice
// level (spec.md §4.6's next_slice/read_container contracts).
type Reader struct {
	r    io.Reader
	seek io.Seeker // non-nil when r also implements io.Seeker; enables landmark-based slice skip
	opts cramopts.Options

	VersionMajor, VersionMinor byte
	FileID                     FileID

	eof bool

	curHeader     *Header
	curCompHeader *cramhdr.CompressionHeader
	dataStart     int64 // absolute offset of landmark 0, once known
	sliceIdx      int
}

// NewReader parses the file-level header (magic, version, file id) from
// r and returns a Reader positioned at the first container.
func NewReader(r io.Reader, opts cramopts.Options) (*Reader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "container: file magic")
	}
	if string(magic[:]) != FileMagic {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "container: bad magic %q", magic)
	}
	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "container: version")
	}

	cr := &Reader{r: r, opts: opts, VersionMajor: version[0], VersionMinor: version[1]}
	if _, err := io.ReadFull(r, cr.FileID[:]); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "container: file id")
	}
	if s, ok := r.(io.Seeker); ok {
		cr.seek = s
	}
	return cr, nil
}

// EOF reports whether the reader has consumed the file's terminating
// zero-length container.
func (r *Reader) EOF() bool { return r.eof }

// byteSkipper is satisfied by internal/bufseekio.ReadSeeker; when present
// it avoids a Seek round trip to compute the current position.
type byteSkipper interface {
	SkipBytes(n int64) error
}

// skip advances past n bytes of a container or slice that falls outside
// opts.Range, via SkipBytes on a buffered reader when available, falling
// back to a plain relative Seek otherwise.
func (r *Reader) skip(n int64) error {
	if bs, ok := r.seek.(byteSkipper); ok {
		return bs.SkipBytes(n)
	}
	_, err := r.seek.Seek(n, io.SeekCurrent)
	return err
}

// advanceContainer reads container headers (skipping whole containers
// that fall outside opts.Range) until it finds one to decode, or hits
// the EOF container.
func (r *Reader) advanceContainer() error {
	for {
		h, err := ReadHeader(r.r)
		if err == io.EOF {
			r.eof = true
			return nil
		}
		if err != nil {
			return err
		}
		if h.EOFContainer() {
			r.eof = true
			return nil
		}

		if r.opts.Range != nil && !containerOverlaps(h, r.opts.Range) {
			if r.seek == nil {
				return errors.Wrap(cramerr.ErrInvalidRecord, "container: range filtering requires a seekable reader")
			}
			dbg.Println("container: skipping container outside range, ref", h.RefSeqID, "start", h.RefSeqStart)
			if err := r.skip(int64(h.Length)); err != nil {
				return errors.Wrap(err, "container: skip container")
			}
			continue
		}

		chBlock, err := block.ReadBlock(r.r, true)
		if err != nil {
			return errors.Wrap(err, "container: compression header block")
		}
		ch, err := cramhdr.ReadCompressionHeader(chBlock, int(r.opts.Version.Major))
		if err != nil {
			return errors.Wrap(err, "container: compression header")
		}

		r.curHeader = h
		r.curCompHeader = ch
		r.sliceIdx = 0
		if r.seek != nil {
			pos, err := r.seek.Seek(0, io.SeekCurrent)
			if err != nil {
				return errors.Wrap(err, "container: locate slice data start")
			}
			r.dataStart = pos
		}
		return nil
	}
}

// SliceHandle bundles one decoded slice's header, its compression
// header (shared across the whole container) and its raw blocks.
type SliceHandle struct {
	Header     *slice.Header
	CompHeader *cramhdr.CompressionHeader
	Blocks     []*block.Block
}

// NextSlice returns the next slice overlapping opts.Range, pulling
// new containers as needed, or nil once the file is exhausted
// (spec.md §4.6's next_slice contract).
func (r *Reader) NextSlice() (*SliceHandle, error) {
	for {
		if r.eof {
			return nil, nil
		}
		if r.curHeader == nil || r.sliceIdx >= len(r.curHeader.Landmarks) {
			if err := r.advanceContainer(); err != nil {
				return nil, err
			}
			if r.eof {
				return nil, nil
			}
			continue
		}

		if r.seek != nil {
			target := r.dataStart + int64(r.curHeader.Landmarks[r.sliceIdx])
			if _, err := r.seek.Seek(target, io.SeekStart); err != nil {
				return nil, errors.Wrap(err, "container: seek to slice")
			}
		}

		shdrBlock, err := block.ReadBlock(r.r, true)
		if err != nil {
			return nil, errors.Wrap(err, "container: slice header block")
		}
		shdr, err := slice.ReadHeader(shdrBlock)
		if err != nil {
			return nil, errors.Wrap(err, "container: slice header")
		}
		blocks := make([]*block.Block, shdr.NumBlocks)
		for i := range blocks {
			b, err := block.ReadBlock(r.r, true)
			if err != nil {
				return nil, errors.Wrapf(err, "container: slice block %d", i)
			}
			blocks[i] = b
		}
		r.sliceIdx++

		if r.opts.Range != nil && !sliceOverlaps(shdr, r.opts.Range) {
			dbg.Println("container: skipping slice outside range, ref", shdr.RefSeqID, "start", shdr.RefSeqStart)
			continue
		}

		return &SliceHandle{Header: shdr, CompHeader: r.curCompHeader, Blocks: blocks}, nil
	}
}

func containerOverlaps(h *Header, rng *cramopts.Range) bool {
	if h.RefSeqID == slice.MultiRefSentinel {
		return true // its slices are filtered one by one by sliceOverlaps
	}
	return rangesOverlap(h.RefSeqID, int64(h.RefSeqStart), int64(h.RefSeqStart)+int64(h.RefSeqSpan), rng)
}

func sliceOverlaps(h *slice.Header, rng *cramopts.Range) bool {
	if h.MultiRef() {
		return true // per-record ref id; can't be excluded without decoding records
	}
	return rangesOverlap(h.RefSeqID, int64(h.RefSeqStart), int64(h.RefSeqStart)+int64(h.RefSeqSpan), rng)
}

func rangesOverlap(refID int32, start, end int64, rng *cramopts.Range) bool {
	if rng.RefID != refID {
		return false
	}
	if refID == -1 {
		return true // unmapped data has no span to compare
	}
	if rng.End != 0 && start >= rng.End {
		return false
	}
	if end <= rng.Start {
		return false
	}
	return true
}
