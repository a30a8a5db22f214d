package slice

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
	"github.com/go-cram/gocram/cramhdr"
)

// decodeAuxFields decodes one record's aux tags from its TL tag-line
// index, per spec.md §4.5 step 3's "aux" dependency: look up the TD
// line, then decode each tag's value with its own per-(tag,type) codec.
//
// A TD line entry with Type=='*' is a placeholder (spec.md §4.5 step 6):
// its value was never put through a data-series codec at all, and is
// instead synthesized here from state r already carries by this point
// in decode (the RG series has already filled in r.ReadGroup, and
// decodeSeqAndQual, called before aux, r.NM/r.MD).
func decodeAuxFields(src *codec.Source, tags cramhdr.TagCodecs, td cramhdr.TagDictionary, tl int32, r *Record) ([]AuxField, error) {
	specs, ok := td.Line(tl)
	if !ok {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "slice: no TD line for TL %d", tl)
	}
	fields := make([]AuxField, 0, len(specs))
	for _, spec := range specs {
		if spec.Type == '*' {
			field, err := placeholderAuxField(spec, r)
			if err != nil {
				return nil, errors.Wrapf(err, "slice: placeholder aux tag %c%c", spec.Tag1, spec.Tag2)
			}
			fields = append(fields, field)
			continue
		}
		c, err := tags.Lookup(spec.Tag1, spec.Tag2, spec.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "slice: aux tag %c%c", spec.Tag1, spec.Tag2)
		}
		value, err := decodeAuxValue(src, c, spec.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "slice: aux tag %c%c value", spec.Tag1, spec.Tag2)
		}
		fields = append(fields, AuxField{Tag1: spec.Tag1, Tag2: spec.Tag2, Type: spec.Type, Value: value})
	}
	return fields, nil
}

// placeholderAuxField synthesizes the value for a '*'-typed TD entry
// (the MD*/NM*/RG* forms) straight from the record's own state, instead
// of through a codec: these tags are never put on the wire at all, per
// original_source/io_lib's cram_decode_aux.
//
// RG's placeholder form substitutes the record's integer read-group
// index rather than a read-group name, since this module carries no
// @RG header/name table (see DESIGN.md) for an 'i'-typed RG to look one
// up in; NM and MD substitute the values decodeSeqAndQual already
// computed, as the original does.
func placeholderAuxField(spec cramhdr.TagSpec, r *Record) (AuxField, error) {
	switch {
	case spec.Tag1 == 'N' && spec.Tag2 == 'M':
		return AuxField{Tag1: 'N', Tag2: 'M', Type: 'i', Value: int32ToLE(r.NM)}, nil
	case spec.Tag1 == 'M' && spec.Tag2 == 'D':
		return AuxField{Tag1: 'M', Tag2: 'D', Type: 'Z', Value: append([]byte(r.MD), 0)}, nil
	case spec.Tag1 == 'R' && spec.Tag2 == 'G':
		return AuxField{Tag1: 'R', Tag2: 'G', Type: 'i', Value: int32ToLE(r.ReadGroup)}, nil
	default:
		return AuxField{}, errors.Wrapf(cramerr.ErrUnsupportedCodec, "slice: unknown placeholder tag %c%c", spec.Tag1, spec.Tag2)
	}
}

// decodeAuxValue decodes one tag's value into BAM aux wire form (the
// bytes that follow the (tag,type) key in a BAM aux block), per
// spec.md §6's integer-width/Z-NUL/raw-passthrough rules.
func decodeAuxValue(src *codec.Source, c codec.Codec, typ byte) ([]byte, error) {
	switch typ {
	case 'c', 'C':
		dec, ok := c.(codec.IntDecoder)
		if !ok {
			return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "slice: aux int8 codec")
		}
		v, err := dec.DecodeInt(src)
		if err != nil {
			return nil, err
		}
		return []byte{byte(v)}, nil

	case 's', 'S':
		dec, ok := c.(codec.IntDecoder)
		if !ok {
			return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "slice: aux int16 codec")
		}
		v, err := dec.DecodeInt(src)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b, nil

	case 'i', 'I', 'f':
		dec, ok := c.(codec.IntDecoder)
		if !ok {
			return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "slice: aux int32 codec")
		}
		v, err := dec.DecodeInt(src)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b, nil

	case 'A':
		dec, ok := c.(codec.ByteDecoder)
		if !ok {
			return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "slice: aux byte codec")
		}
		v, err := dec.DecodeByte(src)
		if err != nil {
			return nil, err
		}
		return []byte{v}, nil

	default: // Z, H, B and anything else: raw byte-array passthrough.
		dec, ok := c.(codec.ByteArrayDecoder)
		if !ok {
			return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "slice: aux byte-array codec")
		}
		v, err := dec.DecodeByteArray(src, 0)
		if err != nil {
			return nil, err
		}
		if typ == 'Z' || typ == 'H' {
			v = append(append([]byte(nil), v...), 0)
		}
		return v, nil
	}
}

// encodeAuxBAM concatenates decoded aux fields into the raw BAM aux
// block bytes that follow a record's quality scores (spec.md §6).
func encodeAuxBAM(fields []AuxField) []byte {
	var out []byte
	for _, f := range fields {
		out = append(out, f.Tag1, f.Tag2, f.Type)
		out = append(out, f.Value...)
	}
	return out
}
