package slice

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
)

// Feature op bytes, per spec.md §4.5.1's FC table.
const (
	featSoftClip     = 'S'
	featSubstitution = 'X'
	featDeletion     = 'D'
	featInsertion    = 'I'
	featInsertBase   = 'i'
	featBasesRun     = 'b'
	featQualsRun     = 'q'
	featBaseQual     = 'B'
	featQualOnly     = 'Q'
	featHardClip     = 'H'
	featPadding      = 'P'
	featRefSkip      = 'N'
)

// refWindow gives reference-base access over [start, start+len(bases))
// in absolute 0-based reference coordinates; positions outside the
// window read as 'N', matching spec.md's "or N when beyond reference
// end".
type refWindow struct {
	start int64
	bases []byte
}

func (w refWindow) at(pos0 int64) byte {
	i := pos0 - w.start
	if i < 0 || i >= int64(len(w.bases)) {
		return 'N'
	}
	return w.bases[i]
}

// seqResult is everything decodeSequence reconstructs for one mapped
// record.
type seqResult struct {
	seq   []byte
	qual  []byte
	cigar []bamrec.CigarOp
	aend  int32
	md    string
	nm    int32
}

func decodeInt(sc cramhdr.SeriesCodecs, src *codec.Source, s cramhdr.Series) (int64, error) {
	c, err := sc.Lookup(s)
	if err != nil {
		return 0, err
	}
	dec, ok := c.(codec.IntDecoder)
	if !ok {
		return 0, errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not an int codec", s)
	}
	return dec.DecodeInt(src)
}

func decodeByte(sc cramhdr.SeriesCodecs, src *codec.Source, s cramhdr.Series) (byte, error) {
	c, err := sc.Lookup(s)
	if err != nil {
		return 0, err
	}
	dec, ok := c.(codec.ByteDecoder)
	if !ok {
		return 0, errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not a byte codec", s)
	}
	return dec.DecodeByte(src)
}

func decodeByteArray(sc cramhdr.SeriesCodecs, src *codec.Source, s cramhdr.Series, n int) ([]byte, error) {
	c, err := sc.Lookup(s)
	if err != nil {
		return nil, err
	}
	dec, ok := c.(codec.ByteArrayDecoder)
	if !ok {
		return nil, errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not a byte-array codec", s)
	}
	return dec.DecodeByteArray(src, n)
}

// decodeSequence reconstructs sequence, CIGAR, quality and MD/NM for one
// mapped record, per spec.md §4.5.1.
func decodeSequence(src *codec.Source, sc cramhdr.SeriesCodecs, sm cramhdr.SubstitutionMatrix, ref refWindow, apos int32, readLen int32, qualityPresent, decodeMD bool) (*seqResult, error) {
	seq := make([]byte, readLen)
	var qual []byte
	if qualityPresent {
		qual = make([]byte, readLen)
	}

	refPos := int64(apos) - 1
	seqPos := int32(1)
	var cigar []bamrec.CigarOp
	var md strings.Builder
	var matchRun int
	var nm int32

	emitCigar := func(op byte, length int32) {
		if length <= 0 {
			return
		}
		if len(cigar) > 0 && cigar[len(cigar)-1].Op == op {
			cigar[len(cigar)-1].Length += uint32(length)
			return
		}
		cigar = append(cigar, bamrec.CigarOp{Op: op, Length: uint32(length)})
	}
	flushMD := func() {
		md.WriteString(strconv.Itoa(matchRun))
		matchRun = 0
	}
	fillMatch := func(n int32) {
		for i := int32(0); i < n; i++ {
			seq[seqPos-1+i] = ref.at(refPos + int64(i))
		}
		emitCigar('M', n)
		refPos += int64(n)
		seqPos += n
		matchRun += int(n)
	}

	fn, err := decodeInt(sc, src, cramhdr.SeriesFN)
	if err != nil {
		return nil, errors.Wrap(err, "slice: FN")
	}

	var prevPos int32
	for i := int64(0); i < fn; i++ {
		fc, err := decodeByte(sc, src, cramhdr.SeriesFC)
		if err != nil {
			return nil, errors.Wrap(err, "slice: FC")
		}
		fp, err := decodeInt(sc, src, cramhdr.SeriesFP)
		if err != nil {
			return nil, errors.Wrap(err, "slice: FP")
		}
		featPos := prevPos + int32(fp)
		prevPos = featPos

		if fc != featQualOnly && featPos > seqPos {
			fillMatch(featPos - seqPos)
		}

		switch fc {
		case featSoftClip:
			bases, err := decodeByteArray(sc, src, cramhdr.SeriesSC, 0)
			if err != nil {
				return nil, errors.Wrap(err, "slice: SC")
			}
			copy(seq[seqPos-1:], bases)
			emitCigar('S', int32(len(bases)))
			seqPos += int32(len(bases))

		case featSubstitution:
			code, err := decodeByte(sc, src, cramhdr.SeriesBS)
			if err != nil {
				return nil, errors.Wrap(err, "slice: BS")
			}
			refBase := ref.at(refPos)
			seq[seqPos-1] = sm.Resolve(refBase, code)
			emitCigar('M', 1)
			if decodeMD {
				flushMD()
				md.WriteByte(refBase)
			}
			refPos++
			seqPos++
			nm++

		case featDeletion:
			dl, err := decodeInt(sc, src, cramhdr.SeriesDL)
			if err != nil {
				return nil, errors.Wrap(err, "slice: DL")
			}
			emitCigar('D', int32(dl))
			if decodeMD {
				flushMD()
				md.WriteByte('^')
				for i := int64(0); i < dl; i++ {
					md.WriteByte(ref.at(refPos + i))
				}
			}
			refPos += dl
			nm += int32(dl)

		case featInsertion:
			bases, err := decodeByteArray(sc, src, cramhdr.SeriesIN, 0)
			if err != nil {
				return nil, errors.Wrap(err, "slice: IN")
			}
			copy(seq[seqPos-1:], bases)
			emitCigar('I', int32(len(bases)))
			seqPos += int32(len(bases))
			nm += int32(len(bases))

		case featInsertBase:
			b, err := decodeByte(sc, src, cramhdr.SeriesBA)
			if err != nil {
				return nil, errors.Wrap(err, "slice: BA")
			}
			seq[seqPos-1] = b
			emitCigar('I', 1)
			seqPos++
			nm++

		case featBasesRun:
			bases, err := decodeByteArray(sc, src, cramhdr.SeriesBB, 0)
			if err != nil {
				return nil, errors.Wrap(err, "slice: BB")
			}
			copy(seq[seqPos-1:], bases)
			emitCigar('M', int32(len(bases)))
			refPos += int64(len(bases))
			seqPos += int32(len(bases))
			matchRun += len(bases)

		case featQualsRun:
			quals, err := decodeByteArray(sc, src, cramhdr.SeriesQQ, 0)
			if err != nil {
				return nil, errors.Wrap(err, "slice: QQ")
			}
			for i := range quals {
				seq[seqPos-1+int32(i)] = ref.at(refPos + int64(i))
				if qual != nil {
					qual[seqPos-1+int32(i)] = quals[i]
				}
			}
			emitCigar('M', int32(len(quals)))
			refPos += int64(len(quals))
			seqPos += int32(len(quals))
			matchRun += len(quals)

		case featBaseQual:
			b, err := decodeByte(sc, src, cramhdr.SeriesBA)
			if err != nil {
				return nil, errors.Wrap(err, "slice: BA")
			}
			q, err := decodeByte(sc, src, cramhdr.SeriesQS)
			if err != nil {
				return nil, errors.Wrap(err, "slice: QS")
			}
			seq[seqPos-1] = b
			if qual != nil {
				qual[seqPos-1] = q
			}
			emitCigar('M', 1)
			refPos++
			seqPos++
			nm++

		case featQualOnly:
			q, err := decodeByte(sc, src, cramhdr.SeriesQS)
			if err != nil {
				return nil, errors.Wrap(err, "slice: QS")
			}
			if qual != nil && seqPos >= 1 && int(seqPos) <= len(qual) {
				qual[seqPos-1] = q
			}

		case featHardClip:
			hc, err := decodeInt(sc, src, cramhdr.SeriesHC)
			if err != nil {
				return nil, errors.Wrap(err, "slice: HC")
			}
			emitCigar('H', int32(hc))

		case featPadding:
			pd, err := decodeInt(sc, src, cramhdr.SeriesPD)
			if err != nil {
				return nil, errors.Wrap(err, "slice: PD")
			}
			emitCigar('P', int32(pd))

		case featRefSkip:
			rs, err := decodeInt(sc, src, cramhdr.SeriesRS)
			if err != nil {
				return nil, errors.Wrap(err, "slice: RS")
			}
			emitCigar('N', int32(rs))
			refPos += rs

		default:
			return nil, errors.Wrapf(cramerr.ErrInvalidRecord, "slice: unknown feature op %q", fc)
		}
	}

	if remaining := readLen - seqPos + 1; remaining > 0 {
		fillMatch(remaining)
	}

	var mdStr string
	if decodeMD {
		flushMD()
		mdStr = md.String()
	}

	return &seqResult{
		seq:   seq,
		qual:  qual,
		cigar: cigar,
		aend:  int32(refPos),
		md:    mdStr,
		nm:    nm,
	}, nil
}
