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

func encodeInt(sc cramhdr.SeriesCodecs, sink *codec.Sink, s cramhdr.Series, v int64) error {
	c, err := sc.Lookup(s)
	if err != nil {
		return err
	}
	enc, ok := c.(codec.IntEncoder)
	if !ok {
		return errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not an int codec", s)
	}
	return enc.EncodeInt(sink, v)
}

func encodeByte(sc cramhdr.SeriesCodecs, sink *codec.Sink, s cramhdr.Series, v byte) error {
	c, err := sc.Lookup(s)
	if err != nil {
		return err
	}
	enc, ok := c.(codec.ByteEncoder)
	if !ok {
		return errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not a byte codec", s)
	}
	return enc.EncodeByte(sink, v)
}

func encodeByteArray(sc cramhdr.SeriesCodecs, sink *codec.Sink, s cramhdr.Series, v []byte) error {
	c, err := sc.Lookup(s)
	if err != nil {
		return err
	}
	enc, ok := c.(codec.ByteArrayEncoder)
	if !ok {
		return errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: series %q is not a byte-array codec", s)
	}
	return enc.EncodeByteArray(sink, v)
}

// feature is one pending FC/FP write: pos is the 1-based read position
// the feature starts at, in the same convention decodeSequence's featPos
// uses (the position once any preceding implicit match has been
// consumed). refStart is the 0-based reference position the feature
// consumes from, valid only for the feature kinds that advance the
// reference (substitution, deletion, ref-skip).
type feature struct {
	fc       byte
	pos      int32
	refStart int64
	code     byte   // BS (substitution)
	length   int32  // DL, HC, PD, RS
	bytes    []byte // IN, SC
}

// encodeSequence walks a record's CIGAR against its sequence and a
// reference window, emitting the feature stream a mapped record's FN/
// FC/FP/... series encode, the inverse of decodeSequence. Matching
// bases are never stored as features, only the positions where the read
// diverges from the reference or the CIGAR names an indel/clip/pad/skip.
func encodeSequence(sink *codec.Sink, sc cramhdr.SeriesCodecs, sm cramhdr.SubstitutionMatrix, ref refWindow, apos int32, seq []byte, cigar []bamrec.CigarOp, decodeMD bool) (aend int32, md string, nm int32, err error) {
	refPos := int64(apos) - 1
	seqPos := int32(1)
	var feats []feature

	for _, op := range cigar {
		n := int32(op.Length)
		switch op.Op {
		case 'M', '=', 'X':
			for i := int32(0); i < n; i++ {
				rb := ref.at(refPos)
				ab := seq[seqPos-1]
				if code, ok := sm.CodeFor(rb, ab); ok {
					feats = append(feats, feature{fc: featSubstitution, pos: seqPos, refStart: refPos, code: code})
					nm++
				}
				refPos++
				seqPos++
			}
		case 'I':
			bs := append([]byte(nil), seq[seqPos-1:seqPos-1+n]...)
			feats = append(feats, feature{fc: featInsertion, pos: seqPos, bytes: bs})
			seqPos += n
			nm += n
		case 'D':
			feats = append(feats, feature{fc: featDeletion, pos: seqPos, refStart: refPos, length: n})
			refPos += int64(n)
			nm += n
		case 'N':
			feats = append(feats, feature{fc: featRefSkip, pos: seqPos, refStart: refPos, length: n})
			refPos += int64(n)
		case 'S':
			bs := append([]byte(nil), seq[seqPos-1:seqPos-1+n]...)
			feats = append(feats, feature{fc: featSoftClip, pos: seqPos, bytes: bs})
			seqPos += n
		case 'H':
			feats = append(feats, feature{fc: featHardClip, pos: seqPos, length: n})
		case 'P':
			feats = append(feats, feature{fc: featPadding, pos: seqPos, length: n})
		default:
			return 0, "", 0, errors.Wrapf(cramerr.ErrInvalidRecord, "slice: unsupported cigar op %q", op.Op)
		}
	}

	if err := encodeInt(sc, sink, cramhdr.SeriesFN, int64(len(feats))); err != nil {
		return 0, "", 0, errors.Wrap(err, "slice: FN")
	}

	var matchRun int
	var mdBuf strings.Builder
	flushMD := func() {
		mdBuf.WriteString(strconv.Itoa(matchRun))
		matchRun = 0
	}

	prevPos := int32(0)
	refCursor := int64(apos) - 1
	for _, f := range feats {
		fp := f.pos - prevPos
		prevPos = f.pos
		if err := encodeByte(sc, sink, cramhdr.SeriesFC, f.fc); err != nil {
			return 0, "", 0, errors.Wrap(err, "slice: FC")
		}
		if err := encodeInt(sc, sink, cramhdr.SeriesFP, int64(fp)); err != nil {
			return 0, "", 0, errors.Wrap(err, "slice: FP")
		}

		switch f.fc {
		case featSubstitution:
			if decodeMD {
				matchRun += int(f.refStart - refCursor)
				flushMD()
				mdBuf.WriteByte(ref.at(f.refStart))
			}
			if err := encodeByte(sc, sink, cramhdr.SeriesBS, f.code); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: BS")
			}
			refCursor = f.refStart + 1

		case featDeletion:
			if decodeMD {
				matchRun += int(f.refStart - refCursor)
				flushMD()
				mdBuf.WriteByte('^')
				for i := int32(0); i < f.length; i++ {
					mdBuf.WriteByte(ref.at(f.refStart + int64(i)))
				}
			}
			if err := encodeInt(sc, sink, cramhdr.SeriesDL, int64(f.length)); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: DL")
			}
			refCursor = f.refStart + int64(f.length)

		case featInsertion:
			if err := encodeByteArray(sc, sink, cramhdr.SeriesIN, f.bytes); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: IN")
			}

		case featSoftClip:
			if err := encodeByteArray(sc, sink, cramhdr.SeriesSC, f.bytes); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: SC")
			}

		case featHardClip:
			if err := encodeInt(sc, sink, cramhdr.SeriesHC, int64(f.length)); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: HC")
			}

		case featPadding:
			if err := encodeInt(sc, sink, cramhdr.SeriesPD, int64(f.length)); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: PD")
			}

		case featRefSkip:
			if err := encodeInt(sc, sink, cramhdr.SeriesRS, int64(f.length)); err != nil {
				return 0, "", 0, errors.Wrap(err, "slice: RS")
			}
			refCursor = f.refStart + int64(f.length)
		}
	}

	if decodeMD {
		matchRun += int(refPos - refCursor)
		flushMD()
	}

	return int32(refPos), mdBuf.String(), nm, nil
}
