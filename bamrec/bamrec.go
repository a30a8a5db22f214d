// Package bamrec implements the external BAM record binary layout
// spec.md §6 names: the fixed-size prefix, name, cigar, packed sequence,
// qualities and aux tags a CRAM record is converted to/from. No SAM text
// grammar and no BGZF framing live here — only the binary record shape.
package bamrec

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/cramerr"
)

// seqAlphabet is BAM's 4-bit packed-base alphabet, index = nibble value.
const seqAlphabet = "=ACMGRSVTWYHKDBN"

var seqCode [256]byte

func init() {
	for i := range seqCode {
		seqCode[i] = 0xF // 'N' equivalent for anything unrecognised
	}
	for code, base := range []byte(seqAlphabet) {
		seqCode[base] = byte(code)
		seqCode[toLower(base)] = byte(code)
	}
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// CigarOp is one CIGAR operation: low 4 bits of the packed u32 give the
// op, the remaining 28 bits give the length.
type CigarOp struct {
	Op     byte // one of MIDNSHP=X, BAM-numbered 0-8
	Length uint32
}

const cigarOpChars = "MIDNSHP=X"

func (c CigarOp) pack() uint32 {
	idx := bytes.IndexByte([]byte(cigarOpChars), c.Op)
	if idx < 0 {
		idx = 0
	}
	return c.Length<<4 | uint32(idx)
}

func unpackCigar(v uint32) CigarOp {
	idx := v & 0xF
	if int(idx) >= len(cigarOpChars) {
		idx = 0
	}
	return CigarOp{Op: cigarOpChars[idx], Length: v >> 4}
}

// Record is the in-memory form of a BAM alignment record.
type Record struct {
	RefID    int32
	Pos      int32 // 0-based
	MapQ     byte
	Bin      uint16
	Flag     uint16
	Name     string
	Cigar    []CigarOp
	Seq      []byte // one byte per base, ASCII
	Qual     []byte // one byte per base; len 0 means "absent" (0xFF run)
	MateRef  int32
	MatePos  int32
	TLen     int32
	AuxBytes []byte // raw BAM aux-tag bytes, already in wire order
}

// MarshalBinary encodes r as the fixed prefix + name + cigar + packed
// sequence + qualities + aux layout of spec.md §6.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)

	nameBytes := append([]byte(r.Name), 0)
	nameLen := len(nameBytes)

	binMQNL := uint32(r.Bin)<<16 | uint32(r.MapQ)<<8 | uint32(nameLen)
	flagNC := uint32(r.Flag)<<16 | uint32(len(r.Cigar))

	le := binary.LittleEndian
	var prefix [32]byte
	le.PutUint32(prefix[0:4], uint32(r.RefID))
	le.PutUint32(prefix[4:8], uint32(r.Pos))
	le.PutUint32(prefix[8:12], binMQNL)
	le.PutUint32(prefix[12:16], flagNC)
	le.PutUint32(prefix[16:20], uint32(len(r.Seq)))
	le.PutUint32(prefix[20:24], uint32(r.MateRef))
	le.PutUint32(prefix[24:28], uint32(r.MatePos))
	le.PutUint32(prefix[28:32], uint32(r.TLen))
	buf.Write(prefix[:])

	buf.Write(nameBytes)

	for _, op := range r.Cigar {
		var b [4]byte
		le.PutUint32(b[:], op.pack())
		buf.Write(b[:])
	}

	packed := make([]byte, (len(r.Seq)+1)/2)
	for i, base := range r.Seq {
		code := seqCode[base]
		if i%2 == 0 {
			packed[i/2] = code << 4
		} else {
			packed[i/2] |= code
		}
	}
	buf.Write(packed)

	if len(r.Qual) == 0 {
		qual := make([]byte, len(r.Seq))
		for i := range qual {
			qual[i] = 0xFF
		}
		buf.Write(qual)
	} else {
		if len(r.Qual) != len(r.Seq) {
			return nil, errors.Wrapf(cramerr.ErrInvalidRecord, "bamrec: qual length %d != seq length %d", len(r.Qual), len(r.Seq))
		}
		buf.Write(r.Qual)
	}

	buf.Write(r.AuxBytes)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a BAM record from its binary form (without the
// leading block_size that BGZF framing would add; that's out of scope
// here per spec.md §1's "no BGZF framing").
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < 32 {
		return errors.Wrap(cramerr.ErrTruncatedInput, "bamrec: prefix")
	}
	le := binary.LittleEndian
	r.RefID = int32(le.Uint32(data[0:4]))
	r.Pos = int32(le.Uint32(data[4:8]))
	binMQNL := le.Uint32(data[8:12])
	r.Bin = uint16(binMQNL >> 16)
	r.MapQ = byte(binMQNL >> 8)
	nameLen := int(binMQNL & 0xFF)
	flagNC := le.Uint32(data[12:16])
	r.Flag = uint16(flagNC >> 16)
	nCigar := int(flagNC & 0xFFFF)
	seqLen := int(le.Uint32(data[16:20]))
	r.MateRef = int32(le.Uint32(data[20:24]))
	r.MatePos = int32(le.Uint32(data[24:28]))
	r.TLen = int32(le.Uint32(data[28:32]))

	off := 32
	if off+nameLen > len(data) {
		return errors.Wrap(cramerr.ErrTruncatedInput, "bamrec: name")
	}
	name := data[off : off+nameLen]
	if nameLen > 0 && name[nameLen-1] == 0 {
		name = name[:nameLen-1]
	}
	r.Name = string(name)
	off += nameLen

	r.Cigar = make([]CigarOp, nCigar)
	for i := 0; i < nCigar; i++ {
		if off+4 > len(data) {
			return errors.Wrap(cramerr.ErrTruncatedInput, "bamrec: cigar")
		}
		r.Cigar[i] = unpackCigar(le.Uint32(data[off : off+4]))
		off += 4
	}

	packedLen := (seqLen + 1) / 2
	if off+packedLen > len(data) {
		return errors.Wrap(cramerr.ErrTruncatedInput, "bamrec: seq")
	}
	r.Seq = make([]byte, seqLen)
	for i := 0; i < seqLen; i++ {
		b := data[off+i/2]
		var nibble byte
		if i%2 == 0 {
			nibble = b >> 4
		} else {
			nibble = b & 0xF
		}
		if int(nibble) >= len(seqAlphabet) {
			return errors.Wrapf(cramerr.ErrMalformedHeader, "bamrec: seq nibble %d out of range", nibble)
		}
		r.Seq[i] = seqAlphabet[nibble]
	}
	off += packedLen

	if off+seqLen > len(data) {
		return errors.Wrap(cramerr.ErrTruncatedInput, "bamrec: qual")
	}
	qual := data[off : off+seqLen]
	off += seqLen
	if seqLen > 0 && allFF(qual) {
		r.Qual = nil
	} else {
		r.Qual = append([]byte(nil), qual...)
	}

	r.AuxBytes = append([]byte(nil), data[off:]...)
	return nil
}

func allFF(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}
