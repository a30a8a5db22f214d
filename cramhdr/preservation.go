package cramhdr

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// PreservationMap holds the decode-affecting global flags and tables
// from a compression header, per spec.md §4.4.
type PreservationMap struct {
	ReadNamesPreserved bool // RN, default false
	APDelta            bool // AP, default true
	ReferenceRequired  bool // RR, default true
	QualInRefOrder     bool // QO, default true
	SubstitutionMatrix SubstitutionMatrix
	TagDict            TagDictionary
}

// DefaultPreservationMap returns the map with every key at its
// spec-mandated default, used when a key is absent from the wire map
// (a key simply absent keeps its default; ReadPreservationMap rejects a
// key it does not recognise with ErrMalformedHeader).
func DefaultPreservationMap() PreservationMap {
	return PreservationMap{
		APDelta:           true,
		ReferenceRequired: true,
		QualInRefOrder:    true,
	}
}

func ReadPreservationMap(r io.ByteReader) (PreservationMap, error) {
	pm := DefaultPreservationMap()
	size, err := bitio.ReadITF8(r)
	if err != nil {
		return pm, errors.Wrap(err, "cramhdr: preservation map size")
	}
	count, err := bitio.ReadITF8(r)
	if err != nil {
		return pm, errors.Wrap(err, "cramhdr: preservation map count")
	}
	_ = size
	for i := int32(0); i < count; i++ {
		k1, err := r.ReadByte()
		if err != nil {
			return pm, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: preservation map key")
		}
		k2, err := r.ReadByte()
		if err != nil {
			return pm, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: preservation map key")
		}
		key := string([]byte{k1, k2})
		switch key {
		case "RN":
			v, err := r.ReadByte()
			if err != nil {
				return pm, err
			}
			pm.ReadNamesPreserved = v != 0
		case "AP":
			v, err := r.ReadByte()
			if err != nil {
				return pm, err
			}
			pm.APDelta = v != 0
		case "RR":
			v, err := r.ReadByte()
			if err != nil {
				return pm, err
			}
			pm.ReferenceRequired = v != 0
		case "QO":
			v, err := r.ReadByte()
			if err != nil {
				return pm, err
			}
			pm.QualInRefOrder = v != 0
		case "SM":
			var raw [5]byte
			for j := range raw {
				raw[j], err = r.ReadByte()
				if err != nil {
					return pm, errors.Wrap(cramerr.ErrTruncatedInput, "cramhdr: SM bytes")
				}
			}
			pm.SubstitutionMatrix = DecodeSubstitutionMatrix(raw)
		case "TD":
			td, err := readTagDictionary(r)
			if err != nil {
				return pm, err
			}
			pm.TagDict = td
		default:
			// unrecognised key: forward compatibility requires we
			// ignore it, but we have no length prefix to skip by for
			// an arbitrary unknown key, so this is a hard decode
			// error rather than silently desyncing the stream.
			return pm, errors.Wrapf(cramerr.ErrMalformedHeader, "cramhdr: unknown preservation map key %q", key)
		}
	}
	return pm, nil
}

func (pm PreservationMap) Write() []byte {
	var items []byte
	count := int32(0)

	writeBool := func(key string, v bool) {
		items = append(items, key[0], key[1])
		if v {
			items = append(items, 1)
		} else {
			items = append(items, 0)
		}
		count++
	}
	writeBool("RN", pm.ReadNamesPreserved)
	writeBool("AP", pm.APDelta)
	writeBool("RR", pm.ReferenceRequired)
	writeBool("QO", pm.QualInRefOrder)

	items = append(items, 'S', 'M')
	sm := pm.SubstitutionMatrix.Encode()
	items = append(items, sm[:]...)
	count++

	items = append(items, 'T', 'D')
	items = append(items, pm.TagDict.write()...)
	count++

	out := bitio.WriteITF8(int32(len(items)))
	out = append(out, bitio.WriteITF8(count)...)
	out = append(out, items...)
	return out
}
