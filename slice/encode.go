package slice

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/refprovider"
)

// Encoder assembles a batch of external records into one slice's blocks,
// against a fixed compression header (spec.md §4.6's "buffer records
// until slice-full" step, scoped here to a single caller-sized batch
// rather than an adaptive fill policy).
type Encoder struct {
	header *cramhdr.CompressionHeader
	opts   cramopts.Options
	refs   refprovider.Provider
}

// NewEncoder builds an Encoder against a fixed compression header. Use
// cramhdr.DefaultCompressionHeader for a ready-made header; every record
// is written with TL 0, so the header's tag dictionary needs a line 0.
func NewEncoder(header *cramhdr.CompressionHeader, opts cramopts.Options, refs refprovider.Provider) *Encoder {
	return &Encoder{header: header, opts: opts, refs: refs}
}

// EncodeRecords encodes recs into one slice: a slice header plus a CORE
// block and one external block per data series actually exercised. Every
// paired record is written CFDetached (mate coordinates stored directly
// rather than via an in-slice mate_line chain), which is a legal, if
// less compact, representation of every paired read.
func (e *Encoder) EncodeRecords(recs []*bamrec.Record) (*Header, []*block.Block, error) {
	var coreBuf bytes.Buffer
	core := bitio.NewWriter(&coreBuf)
	externals := make(map[int32]*codec.ExternalWriter)
	sink := &codec.Sink{
		Core: core,
		External: func(contentID int32) (*codec.ExternalWriter, error) {
			w, ok := externals[contentID]
			if !ok {
				w = &codec.ExternalWriter{}
				externals[contentID] = w
			}
			return w, nil
		},
	}

	sc := e.header.Series
	refSeqID := int32(-1)
	multiRef := false
	var sawMapped, sawUnmapped bool
	minStart, maxEnd := int64(-1), int64(-1)

	for _, r := range recs {
		mapped := r.RefID >= 0 && BAMFlag(r.Flag)&FlagUnmapped == 0
		if mapped {
			sawMapped = true
			if refSeqID == -1 {
				refSeqID = r.RefID
			} else if refSeqID != r.RefID {
				multiRef = true
			}
			start := int64(r.Pos)
			end := start + int64(cigarRefSpan(r.Cigar))
			if minStart == -1 || start < minStart {
				minStart = start
			}
			if maxEnd == -1 || end > maxEnd {
				maxEnd = end
			}
		} else {
			sawUnmapped = true
		}
	}
	if sawMapped && sawUnmapped {
		// a single-ref slice header forces every record's ref id to
		// the slice's own ref_seq_id on decode; RI per record is the
		// only way to keep unmapped records' ref id at -1 here.
		multiRef = true
	}

	prevAP := int32(0)
	for _, r := range recs {
		var err error
		prevAP, err = e.encodeOne(sink, sc, r, multiRef, prevAP)
		if err != nil {
			return nil, nil, err
		}
	}
	if err := core.Flush(); err != nil {
		return nil, nil, errors.Wrap(err, "slice: flush core bitstream")
	}

	shdr := &Header{
		NumRecords: int32(len(recs)),
	}
	if multiRef {
		shdr.RefSeqID = MultiRefSentinel
	} else if refSeqID == -1 {
		shdr.RefSeqID = -1 // unmapped slice
	} else {
		shdr.RefSeqID = refSeqID
		shdr.RefSeqStart = int32(minStart + 1)
		shdr.RefSeqSpan = int32(maxEnd - minStart)
	}

	blocks := []*block.Block{block.NewRawBlock(block.ContentCore, 0, coreBuf.Bytes())}
	for id, w := range externals {
		blocks = append(blocks, block.NewRawBlock(block.ContentExternal, id, w.Buf))
		shdr.ContentIDs = append(shdr.ContentIDs, id)
	}
	shdr.NumBlocks = int32(len(blocks))

	return shdr, blocks, nil
}

func cigarRefSpan(cigar []bamrec.CigarOp) int32 {
	var n int32
	for _, op := range cigar {
		switch op.Op {
		case 'M', '=', 'X', 'D', 'N':
			n += int32(op.Length)
		}
	}
	return n
}

func (e *Encoder) encodeOne(sink *codec.Sink, sc cramhdr.SeriesCodecs, r *bamrec.Record, multiRef bool, prevAP int32) (int32, error) {
	flag := BAMFlag(r.Flag)
	mapped := r.RefID >= 0 && flag&FlagUnmapped == 0

	if err := encodeInt(sc, sink, cramhdr.SeriesBF, int64(flag)); err != nil {
		return prevAP, errors.Wrap(err, "slice: BF")
	}
	paired := flag&FlagPaired != 0
	var cf CramFlag
	if len(r.Qual) != 0 {
		cf |= CFQualityPresent
	}
	if paired {
		cf |= CFDetached
	}
	if err := encodeInt(sc, sink, cramhdr.SeriesCF, int64(cf)); err != nil {
		return prevAP, errors.Wrap(err, "slice: CF")
	}
	if multiRef {
		if err := encodeInt(sc, sink, cramhdr.SeriesRI, int64(r.RefID)); err != nil {
			return prevAP, errors.Wrap(err, "slice: RI")
		}
	}
	if err := encodeInt(sc, sink, cramhdr.SeriesRL, int64(len(r.Seq))); err != nil {
		return prevAP, errors.Wrap(err, "slice: RL")
	}
	apos := r.Pos + 1
	if !mapped {
		apos = 0
	}
	apWire := apos
	if e.header.Preservation.APDelta {
		apWire = apos - prevAP
	}
	if err := encodeInt(sc, sink, cramhdr.SeriesAP, int64(apWire)); err != nil {
		return prevAP, errors.Wrap(err, "slice: AP")
	}
	if err := encodeInt(sc, sink, cramhdr.SeriesRG, -1); err != nil {
		return prevAP, errors.Wrap(err, "slice: RG")
	}
	if e.header.Preservation.ReadNamesPreserved {
		if err := encodeByteArray(sc, sink, cramhdr.SeriesRN, append([]byte(r.Name), 0)); err != nil {
			return prevAP, errors.Wrap(err, "slice: RN")
		}
	}

	// Every paired record is written CFDetached: mate coordinates are
	// stored directly rather than via an in-slice mate_line chain, a
	// legal (if less compact) representation per spec.md §4.5.2.
	if paired {
		var mf int32
		if flag&FlagMateReverse != 0 {
			mf |= mateFlagReverse
		}
		if flag&FlagMateUnmapped != 0 {
			mf |= mateFlagUnmapped
		}
		if err := encodeInt(sc, sink, cramhdr.SeriesMF, int64(mf)); err != nil {
			return prevAP, errors.Wrap(err, "slice: MF")
		}
		if err := encodeInt(sc, sink, cramhdr.SeriesNS, int64(r.MateRef)); err != nil {
			return prevAP, errors.Wrap(err, "slice: NS")
		}
		if err := encodeInt(sc, sink, cramhdr.SeriesNP, int64(r.MatePos+1)); err != nil {
			return prevAP, errors.Wrap(err, "slice: NP")
		}
		if err := encodeInt(sc, sink, cramhdr.SeriesTS, int64(r.TLen)); err != nil {
			return prevAP, errors.Wrap(err, "slice: TS")
		}
	}
	if err := encodeInt(sc, sink, cramhdr.SeriesMQ, int64(r.MapQ)); err != nil {
		return prevAP, errors.Wrap(err, "slice: MQ")
	}

	if !mapped {
		for _, b := range r.Seq {
			if err := encodeByte(sc, sink, cramhdr.SeriesBA, b); err != nil {
				return prevAP, errors.Wrap(err, "slice: BA (unmapped)")
			}
		}
		if len(r.Qual) != 0 {
			for _, q := range r.Qual {
				if err := encodeByte(sc, sink, cramhdr.SeriesQS, q); err != nil {
					return prevAP, errors.Wrap(err, "slice: QS (unmapped)")
				}
			}
		}
	} else {
		if e.refs == nil {
			return prevAP, errors.Wrap(cramerr.ErrReferenceUnavailable, "slice: encode: mapped record needs a reference provider")
		}
		start := int64(r.Pos)
		end := start + int64(cigarRefSpan(r.Cigar)) + refPadding
		bases, err := e.refs.Acquire(r.RefID, start, end)
		if err != nil {
			return prevAP, errors.Wrap(err, "slice: acquire reference window")
		}
		defer e.refs.Release(r.RefID)
		ref := refWindow{start: start, bases: bases}

		// Mapped-record quality is not carried through the feature
		// stream (decodeSequence only surfaces QS via the BaseQual/
		// QualOnly feature ops), so it is intentionally not written
		// here either; see DESIGN.md.
		_, _, _, err = encodeSequence(sink, sc, e.header.Preservation.SubstitutionMatrix, ref, apos, r.Seq, r.Cigar, false)
		if err != nil {
			return prevAP, errors.Wrap(err, "slice: encode feature stream")
		}
	}

	if err := encodeInt(sc, sink, cramhdr.SeriesTL, 0); err != nil {
		return prevAP, errors.Wrap(err, "slice: TL")
	}
	return apos, nil
}
