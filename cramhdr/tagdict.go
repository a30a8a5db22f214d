package cramhdr

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
)

// TagSpec is one (tag1, tag2, type) triplet within a tag dictionary
// line, matching the three-byte key the tag-encoding map is keyed on.
type TagSpec struct {
	Tag1, Tag2 byte
	Type       byte
}

// TagDictionary is the preservation map's TD table: each line is the
// ordered list of aux tags a record with that TL index carries.
type TagDictionary struct {
	Lines [][]TagSpec
}

func readTagDictionary(r io.ByteReader) (TagDictionary, error) {
	n, err := bitio.ReadITF8(r)
	if err != nil {
		return TagDictionary{}, errors.Wrap(err, "cramhdr: TD length")
	}
	raw := make([]byte, n)
	for i := range raw {
		raw[i], err = r.ReadByte()
		if err != nil {
			return TagDictionary{}, errors.Wrap(cramerr.ErrTruncatedInput, "cramhdr: TD bytes")
		}
	}
	var td TagDictionary
	var cur []TagSpec
	for i := 0; i < len(raw); {
		if raw[i] == 0 {
			td.Lines = append(td.Lines, cur)
			cur = nil
			i++
			continue
		}
		if i+3 > len(raw) {
			return TagDictionary{}, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: truncated TD triplet")
		}
		cur = append(cur, TagSpec{Tag1: raw[i], Tag2: raw[i+1], Type: raw[i+2]})
		i += 3
	}
	if len(cur) > 0 {
		td.Lines = append(td.Lines, cur)
	}
	return td, nil
}

func (td TagDictionary) write() []byte {
	var raw []byte
	for _, line := range td.Lines {
		for _, ts := range line {
			raw = append(raw, ts.Tag1, ts.Tag2, ts.Type)
		}
		raw = append(raw, 0)
	}
	out := bitio.WriteITF8(int32(len(raw)))
	return append(out, raw...)
}

// Line returns the tag specs for a TL index, or nil with ok=false if
// out of range (the caller should treat this as MissingCodec upstream).
func (td TagDictionary) Line(tl int32) ([]TagSpec, bool) {
	if tl < 0 || int(tl) >= len(td.Lines) {
		return nil, false
	}
	return td.Lines[int(tl)], true
}

// TagValueKind maps a BAM aux type character to the codec ValueKind it
// decodes as: the single-character 'A' type is a byte, and every
// string/hex/array/float type is ValByteArray (raw bytes, interpreted
// by bamrec); the remaining integer types are ValInt32.
func TagValueKind(typeChar byte) codec.ValueKind {
	switch typeChar {
	case 'A':
		return codec.ValByte
	case 'c', 'C', 's', 'S', 'i', 'I':
		return codec.ValInt32
	default: // 'Z', 'H', 'B', 'f' and anything else carry raw bytes
		return codec.ValByteArray
	}
}
