// Package slice implements CRAM's slice decoder: the per-record state
// machine that reconstructs sequence, CIGAR, auxiliary tags and mate
// links from a slice's blocks and compression header.
package slice

import "github.com/go-cram/gocram/bamrec"

// BAMFlag mirrors the standard SAM/BAM flag bits the BF data series
// stores (CRAM's CRAM-flag<->BAM-flag mapping is the identity on these
// bits; only the mate-related bits get patched during mate resolution).
type BAMFlag uint16

const (
	FlagPaired        BAMFlag = 1 << 0
	FlagProperPair     BAMFlag = 1 << 1
	FlagUnmapped       BAMFlag = 1 << 2
	FlagMateUnmapped   BAMFlag = 1 << 3
	FlagReverse        BAMFlag = 1 << 4
	FlagMateReverse    BAMFlag = 1 << 5
	FlagRead1          BAMFlag = 1 << 6
	FlagRead2          BAMFlag = 1 << 7
	FlagSecondary      BAMFlag = 1 << 8
	FlagQCFail         BAMFlag = 1 << 9
	FlagDuplicate      BAMFlag = 1 << 10
	FlagSupplementary  BAMFlag = 1 << 11
)

// CramFlag is CF: cram-specific flags not carried into the BAM flag
// word, decoded per record to steer the rest of the decode.
type CramFlag uint8

const (
	CFQualityPresent CramFlag = 1 << 0
	CFDetached       CramFlag = 1 << 1
	CFMateDownstream CramFlag = 1 << 2
	CFNoSeq          CramFlag = 1 << 3
	CFExplicitTLen   CramFlag = 1 << 4
)

// explicitTLenSentinel marks "no override" for Record.ExplicitTLen,
// distinguishing it from a legitimately encoded zero.
const explicitTLenSentinel = int32(-2147483648)

// AuxField is one decoded auxiliary tag: a (tag, type) key plus its
// raw value bytes in BAM aux-tag wire form (ready to splice into
// bamrec.Record.AuxBytes).
type AuxField struct {
	Tag1, Tag2, Type byte
	Value            []byte
}

// Record is a fully decoded CRAM record, prior to mate resolution.
type Record struct {
	RefID     int32
	Pos       int32 // apos, 1-based
	ReadLen   int32
	Flag      BAMFlag
	CramFlag  CramFlag
	MapQual   byte
	ReadGroup int32
	Name      string

	MateLine      int32 // -1 if none
	MateRefID     int32
	MatePos       int32
	TLen          int32
	ExplicitTLen  int32

	Cigar []bamrec.CigarOp
	Seq   []byte
	Qual  []byte // nil if not present

	Aend int32 // last reference base covered (1-based, inclusive)

	Aux []AuxField

	MD string
	NM int32

	// index is this record's position within its slice, used to
	// resolve mate_line references during mate resolution.
	index int
}

// ToBAMRecord converts a fully decoded, mate-resolved Record into its
// external bamrec.Record form, per spec.md §4.5 step 7.
func (r *Record) ToBAMRecord(auxBytes []byte) *bamrec.Record {
	return &bamrec.Record{
		RefID:    r.RefID,
		Pos:      r.Pos - 1,
		MapQ:     r.MapQual,
		Flag:     uint16(r.Flag),
		Name:     r.Name,
		Cigar:    r.Cigar,
		Seq:      r.Seq,
		Qual:     r.Qual,
		MateRef:  r.MateRefID,
		MatePos:  r.MatePos - 1,
		TLen:     r.TLen,
		AuxBytes: auxBytes,
	}
}
