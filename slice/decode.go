package slice

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/refprovider"
)

// mateFlag bits of the MF data series, grounded on original_source/io_lib's
// cram_structs.h mate-flag bit layout.
const (
	mateFlagReverse  = 1 << 0
	mateFlagUnmapped = 1 << 1
)

// refPadding is how far past a record's nominal end the reference
// window is extended, to comfortably cover insertions/soft-clips that
// don't consume reference coordinates but whose neighboring match runs
// might read slightly past readLen bases of reference.
const refPadding = 256

// Decoder decodes the records of one slice against a fixed compression
// header, per spec.md §4.5's per-record state machine.
type Decoder struct {
	header *cramhdr.CompressionHeader
	shdr   *Header
	opts   cramopts.Options
	refs   refprovider.Provider
}

// NewDecoder builds a slice Decoder bound to one compression header and
// slice header. refs may be nil only if every record in the slice is
// unmapped or CFNoSeq; mapped records otherwise require a Provider.
func NewDecoder(header *cramhdr.CompressionHeader, shdr *Header, opts cramopts.Options, refs refprovider.Provider) *Decoder {
	return &Decoder{header: header, shdr: shdr, opts: opts, refs: refs}
}

// DecodeRecords decodes every record in the slice from src, in file
// order, and resolves mate links across the whole slice before
// returning (spec.md §4.5.2 operates over a complete slice).
func (d *Decoder) DecodeRecords(src *codec.Source) ([]*Record, error) {
	n := int(d.shdr.NumRecords)
	records := make([]*Record, n)
	var prevAP int32
	if !d.header.Preservation.APDelta {
		prevAP = d.shdr.RefSeqStart
	}
	for i := 0; i < n; i++ {
		r, newAP, err := d.decodeOneRecord(src, i, prevAP)
		if err != nil {
			return nil, errors.Wrapf(err, "slice: record %d", i)
		}
		prevAP = newAP
		records[i] = r
	}
	resolveMates(records)
	return records, nil
}

func (d *Decoder) decodeOneRecord(src *codec.Source, index int, prevAP int32) (*Record, int32, error) {
	sc := d.header.Series
	r := &Record{index: index, MateLine: -1, ExplicitTLen: explicitTLenSentinel}

	bf, err := decodeInt(sc, src, cramhdr.SeriesBF)
	if err != nil {
		return nil, prevAP, errors.Wrap(err, "BF")
	}
	r.Flag = BAMFlag(bf)

	cf, err := decodeInt(sc, src, cramhdr.SeriesCF)
	if err != nil {
		return nil, prevAP, errors.Wrap(err, "CF")
	}
	r.CramFlag = CramFlag(cf)

	if d.shdr.MultiRef() {
		ri, err := decodeInt(sc, src, cramhdr.SeriesRI)
		if err != nil {
			return nil, prevAP, errors.Wrap(err, "RI")
		}
		r.RefID = int32(ri)
	} else {
		r.RefID = d.shdr.RefSeqID
	}

	rl, err := decodeInt(sc, src, cramhdr.SeriesRL)
	if err != nil {
		return nil, prevAP, errors.Wrap(err, "RL")
	}
	r.ReadLen = int32(rl)

	ap, err := decodeInt(sc, src, cramhdr.SeriesAP)
	if err != nil {
		return nil, prevAP, errors.Wrap(err, "AP")
	}
	newAP := prevAP
	if d.header.Preservation.APDelta {
		newAP = prevAP + int32(ap)
		r.Pos = newAP
	} else {
		r.Pos = int32(ap)
		newAP = r.Pos
	}

	rg, err := decodeInt(sc, src, cramhdr.SeriesRG)
	if err != nil {
		return nil, newAP, errors.Wrap(err, "RG")
	}
	r.ReadGroup = int32(rg)

	if d.header.Preservation.ReadNamesPreserved {
		name, err := decodeByteArray(sc, src, cramhdr.SeriesRN, 0)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "RN")
		}
		r.Name = string(name)
	}

	if r.CramFlag&CFDetached != 0 {
		mf, err := decodeInt(sc, src, cramhdr.SeriesMF)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "MF")
		}
		if mf&mateFlagReverse != 0 {
			r.Flag |= FlagMateReverse
		}
		if mf&mateFlagUnmapped != 0 {
			r.Flag |= FlagMateUnmapped
		}
		if !d.header.Preservation.ReadNamesPreserved {
			name, err := decodeByteArray(sc, src, cramhdr.SeriesRN, 0)
			if err != nil {
				return nil, newAP, errors.Wrap(err, "RN")
			}
			r.Name = string(name)
		}
		ns, err := decodeInt(sc, src, cramhdr.SeriesNS)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "NS")
		}
		r.MateRefID = int32(ns)
		np, err := decodeInt(sc, src, cramhdr.SeriesNP)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "NP")
		}
		r.MatePos = int32(np)
		ts, err := decodeInt(sc, src, cramhdr.SeriesTS)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "TS")
		}
		r.TLen = int32(ts)
		r.Flag |= FlagPaired
	} else if r.CramFlag&CFMateDownstream != 0 {
		nf, err := decodeInt(sc, src, cramhdr.SeriesNF)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "NF")
		}
		if nf > 0 {
			r.MateLine = int32(index) + int32(nf) + 1
		}
	}

	if r.CramFlag&CFExplicitTLen != 0 && r.CramFlag&CFDetached == 0 {
		ts, err := decodeInt(sc, src, cramhdr.SeriesTS)
		if err != nil {
			return nil, newAP, errors.Wrap(err, "TS")
		}
		r.ExplicitTLen = int32(ts)
	}

	mq, err := decodeInt(sc, src, cramhdr.SeriesMQ)
	if err != nil {
		return nil, newAP, errors.Wrap(err, "MQ")
	}
	r.MapQual = byte(mq)

	if r.CramFlag&CFNoSeq == 0 {
		if err := d.decodeSeqAndQual(src, r); err != nil {
			return nil, newAP, errors.Wrap(err, "sequence")
		}
	}

	tl, err := decodeInt(sc, src, cramhdr.SeriesTL)
	if err != nil {
		return nil, newAP, errors.Wrap(err, "TL")
	}
	aux, err := decodeAuxFields(src, d.header.Tags, d.header.Preservation.TagDict, int32(tl), r)
	if err != nil {
		return nil, newAP, errors.Wrap(err, "aux")
	}
	r.Aux = aux

	return r, newAP, nil
}

func (d *Decoder) decodeSeqAndQual(src *codec.Source, r *Record) error {
	sc := d.header.Series
	qualityPresent := r.CramFlag&CFQualityPresent != 0

	if r.RefID < 0 || r.Flag&FlagUnmapped != 0 {
		seq := make([]byte, r.ReadLen)
		for i := range seq {
			b, err := decodeByte(sc, src, cramhdr.SeriesBA)
			if err != nil {
				return errors.Wrap(err, "BA")
			}
			seq[i] = b
		}
		r.Seq = seq
		if qualityPresent {
			qual := make([]byte, r.ReadLen)
			for i := range qual {
				q, err := decodeByte(sc, src, cramhdr.SeriesQS)
				if err != nil {
					return errors.Wrap(err, "QS")
				}
				qual[i] = q
			}
			r.Qual = qual
		}
		r.Aend = r.Pos
		return nil
	}

	if d.refs == nil {
		return errors.Wrap(cramerr.ErrReferenceUnavailable, "slice: mapped record needs a reference provider")
	}
	start := int64(r.Pos) - 1
	end := start + int64(r.ReadLen) + refPadding
	bases, err := d.refs.Acquire(r.RefID, start, end)
	if err != nil {
		return errors.Wrap(err, "slice: acquire reference window")
	}
	defer d.refs.Release(r.RefID)

	res, err := decodeSequence(src, sc, d.header.Preservation.SubstitutionMatrix, refWindow{start: start, bases: bases}, r.Pos, r.ReadLen, qualityPresent, d.opts.DecodeMD)
	if err != nil {
		return err
	}
	r.Seq = res.seq
	r.Qual = res.qual
	r.Cigar = res.cigar
	r.Aend = res.aend
	r.MD = res.md
	r.NM = res.nm
	return nil
}

// ToBAMRecords converts a fully mate-resolved record set into external
// bamrec.Record form, appending the MD/NM aux tags when DecodeMD asked
// for them.
func (d *Decoder) ToBAMRecords(records []*Record) []*bamrec.Record {
	out := make([]*bamrec.Record, len(records))
	for i, r := range records {
		aux := r.Aux
		if d.opts.DecodeMD && r.RefID >= 0 {
			aux = append(append([]AuxField(nil), aux...),
				AuxField{Tag1: 'N', Tag2: 'M', Type: 'i', Value: int32ToLE(r.NM)},
				AuxField{Tag1: 'M', Tag2: 'D', Type: 'Z', Value: append([]byte(r.MD), 0)},
			)
		}
		out[i] = r.ToBAMRecord(encodeAuxBAM(aux))
	}
	return out
}

func int32ToLE(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
