// Package gocram provides access to CRAM files: the columnar,
// reference-based compressed alignment format BAM/SAM tooling reads
// and writes for large-scale sequencing data.
package gocram

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/container"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/internal/bufseekio"
	"github.com/go-cram/gocram/refprovider"
	"github.com/go-cram/gocram/slice"
)

// Reader reads a CRAM file's records in file order, against a fixed
// reference provider and decode-option set.
type Reader struct {
	cr   *container.Reader
	opts cramopts.Options
	refs refprovider.Provider

	queued       []*bamrec.Record
	eof          bool
	sliceCounter uint64
	closer       io.Closer
}

// NewReader parses a CRAM file's header from r (must start with the
// "CRAM" magic and a version pair, per spec.md §6) and returns a Reader ready to pull
// records via Next.
//
// The basic structure of a CRAM stream is:
//   - The four byte string "CRAM" plus a {major, minor} version pair.
//   - A 20-byte file id.
//   - One or more containers, each a compression header block followed
//     by its slices, terminated by a zero-length container.
func NewReader(r io.Reader, refs refprovider.Provider, opts cramopts.Options) (*Reader, error) {
	cr, err := container.NewReader(r, opts)
	if err != nil {
		return nil, errors.Wrap(err, "gocram: file header")
	}
	return &Reader{cr: cr, opts: opts, refs: refs}, nil
}

// Open opens the provided file and returns a Reader ready to pull
// records via Next. The caller must Close it when done; unlike a
// fully-eager parse, Next keeps reading from the file as the caller
// consumes records, since the iterator model (spec.md §4.6) decodes
// one slice at a time rather than the whole file up front.
func Open(filePath string, refs refprovider.Provider, opts cramopts.Options) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	rs := bufseekio.NewReadSeeker(f)
	rd, err := NewReader(rs, refs, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	rd.closer = f
	return rd, nil
}

// Close releases the underlying file, if one was opened via Open.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	return rd.closer.Close()
}

// Next returns the next decoded record, or nil, io.EOF once the file is
// exhausted.
func (rd *Reader) Next() (*bamrec.Record, error) {
	for len(rd.queued) == 0 {
		if rd.eof {
			return nil, io.EOF
		}
		if err := rd.fillQueue(); err != nil {
			return nil, err
		}
		if len(rd.queued) == 0 && rd.eof {
			return nil, io.EOF
		}
	}
	rec := rd.queued[0]
	rd.queued = rd.queued[1:]
	return rec, nil
}

// fillQueue pulls up to opts.NThreads slices and decodes them through
// container.RunOrdered, dispatching the batch across a worker pool when
// NThreads > 1 while still appending their records to rd.queued in file
// order (spec.md §4.6/§5's "asynchronous dispatch, ordered iterator").
func (rd *Reader) fillQueue() error {
	batchSize := rd.opts.NThreads
	if batchSize < 1 {
		batchSize = 1
	}

	var handles []*container.SliceHandle
	var sliceKeys []uint64
	for len(handles) < batchSize {
		sh, err := rd.cr.NextSlice()
		if err != nil {
			return errors.Wrap(err, "gocram: next slice")
		}
		if sh == nil {
			rd.eof = true
			break
		}
		handles = append(handles, sh)
		sliceKeys = append(sliceKeys, rd.sliceCounter)
		rd.sliceCounter++
	}
	if len(handles) == 0 {
		return nil
	}

	results, errs := container.RunOrdered(len(handles), 0, rd.opts.NThreads, func(i int) (interface{}, error) {
		return rd.decodeSlice(handles[i], sliceKeys[i])
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrap(err, "gocram: decode slice")
		}
		rd.queued = append(rd.queued, results[i].([]*bamrec.Record)...)
	}
	return nil
}

func (rd *Reader) decodeSlice(sh *container.SliceHandle, sliceKey uint64) ([]*bamrec.Record, error) {
	var core *block.Block
	externals := make(map[int32]*block.Block, len(sh.Blocks))
	for _, b := range sh.Blocks {
		switch b.ContentType {
		case block.ContentCore:
			core = b
		case block.ContentExternal:
			externals[b.ContentID] = b
		}
	}
	if core == nil {
		return nil, errors.Wrap(cramerr.ErrMalformedHeader, "gocram: slice has no CORE block")
	}
	if err := core.Uncompress(); err != nil {
		return nil, err
	}
	for _, b := range externals {
		if err := b.Uncompress(); err != nil {
			return nil, err
		}
	}
	bits, err := core.Bits()
	if err != nil {
		return nil, err
	}

	src := &codec.Source{
		Core: bits,
		External: func(contentID int32) (*block.Block, error) {
			b, ok := externals[contentID]
			if !ok {
				return nil, errors.Wrapf(cramerr.ErrMissingBlock, "gocram: content id %d", contentID)
			}
			return b, nil
		},
		SliceKey: sliceKey,
	}

	dec := slice.NewDecoder(sh.CompHeader, sh.Header, rd.opts, rd.refs)
	recs, err := dec.DecodeRecords(src)
	if err != nil {
		return nil, err
	}
	return dec.ToBAMRecords(recs), nil
}

// DefaultSliceSize is the number of buffered records a Writer batches
// into one slice before encoding it, absent any adaptive slice-fill
// policy (spec.md §4.6 leaves the fill threshold to the implementation).
const DefaultSliceSize = 10000

// Writer encodes records into a single CRAM container, one slice per
// DefaultSliceSize-sized batch, against a fixed compression header.
// Unlike a production encoder's per-container statistics-driven codec
// and slice-size choices, this Writer uses cramhdr.DefaultCompressionHeader
// throughout and buffers every slice of one file into one container,
// writing it out whole on Close.
type Writer struct {
	w      io.Writer
	closer io.Closer

	enc *slice.Encoder
	cw  *container.Writer

	pending []*bamrec.Record
}

// NewWriter writes the CRAM file header (magic, version, a zeroed file
// id) to w and returns a Writer ready to accept records via WriteRecord.
func NewWriter(w io.Writer, refs refprovider.Provider, opts cramopts.Options) (*Writer, error) {
	if _, err := io.WriteString(w, container.FileMagic); err != nil {
		return nil, errors.Wrap(err, "gocram: write file magic")
	}
	version := [2]byte{byte(opts.Version.Major), byte(opts.Version.Minor)}
	if _, err := w.Write(version[:]); err != nil {
		return nil, errors.Wrap(err, "gocram: write version")
	}
	var fileID container.FileID
	if _, err := w.Write(fileID[:]); err != nil {
		return nil, errors.Wrap(err, "gocram: write file id")
	}

	header := cramhdr.DefaultCompressionHeader()
	return &Writer{
		w:   w,
		enc: slice.NewEncoder(header, opts, refs),
		cw:  container.NewWriter(header, opts.Version.Major),
	}, nil
}

// Create opens filePath for writing and returns a Writer over it. The
// caller must Close it to flush buffered records and write the
// container and file-terminating EOF container.
func Create(filePath string, refs refprovider.Provider, opts cramopts.Options) (*Writer, error) {
	f, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	wr, err := NewWriter(f, refs, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	wr.closer = f
	return wr, nil
}

// WriteRecord buffers r, flushing a slice once DefaultSliceSize records
// have accumulated.
func (wr *Writer) WriteRecord(r *bamrec.Record) error {
	wr.pending = append(wr.pending, r)
	if len(wr.pending) >= DefaultSliceSize {
		return wr.flushSlice()
	}
	return nil
}

func (wr *Writer) flushSlice() error {
	if len(wr.pending) == 0 {
		return nil
	}
	shdr, blocks, err := wr.enc.EncodeRecords(wr.pending)
	if err != nil {
		return errors.Wrap(err, "gocram: encode slice")
	}
	if err := wr.cw.AddSlice(shdr, blocks); err != nil {
		return errors.Wrap(err, "gocram: add slice to container")
	}
	wr.pending = wr.pending[:0]
	return nil
}

// Close flushes any buffered records as a final slice, writes the
// container and the file's terminating zero-length container, and
// releases the underlying file if one was opened via Create.
func (wr *Writer) Close() error {
	if err := wr.flushSlice(); err != nil {
		return err
	}
	if !wr.cw.Empty() {
		if _, err := wr.cw.WriteTo(wr.w); err != nil {
			return errors.Wrap(err, "gocram: write container")
		}
	}
	if err := container.WriteEOFContainer(wr.w); err != nil {
		return errors.Wrap(err, "gocram: write eof container")
	}
	if wr.closer != nil {
		return wr.closer.Close()
	}
	return nil
}
