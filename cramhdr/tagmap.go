package cramhdr

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
)

// tagKey is the three-byte (tag1, tag2, type) key the tag-encoding map
// is keyed on.
type tagKey struct {
	Tag1, Tag2, Type byte
}

// TagCodecs is the tag-encoding map: a codec per (tag, type) key.
type TagCodecs map[tagKey]codec.Codec

func ReadTagCodecs(r io.ByteReader, version int) (TagCodecs, error) {
	if _, err := bitio.ReadITF8(r); err != nil {
		return nil, errors.Wrap(err, "cramhdr: tag-encoding map size")
	}
	count, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "cramhdr: tag-encoding map count")
	}
	out := make(TagCodecs, count)
	for i := int32(0); i < count; i++ {
		t1, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: tag key")
		}
		t2, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: tag key")
		}
		typ, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: tag key")
		}
		key := tagKey{Tag1: t1, Tag2: t2, Type: typ}

		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedDescriptor, "cramhdr: tag codec kind")
		}
		n, err := bitio.ReadITF8(r)
		if err != nil {
			return nil, errors.Wrap(err, "cramhdr: tag codec descriptor length")
		}
		buf := make([]byte, n)
		for j := range buf {
			buf[j], err = r.ReadByte()
			if err != nil {
				return nil, errors.Wrap(cramerr.ErrTruncatedInput, "cramhdr: tag codec descriptor bytes")
			}
		}
		c, err := codec.InitFromDescriptor(codec.Kind(kindByte), TagValueKind(typ), buf, version)
		if err != nil {
			return nil, errors.Wrapf(err, "cramhdr: tag %c%c:%c codec", t1, t2, typ)
		}
		out[key] = c
	}
	return out, nil
}

func (tc TagCodecs) write(version int) []byte {
	var items []byte
	for key, c := range tc {
		items = append(items, key.Tag1, key.Tag2, key.Type)
		items = append(items, byte(c.Kind()))
		body := c.Store(version)
		items = append(items, bitio.WriteITF8(int32(len(body)))...)
		items = append(items, body...)
	}
	out := bitio.WriteITF8(int32(len(items)))
	out = append(out, bitio.WriteITF8(int32(len(tc)))...)
	return append(out, items...)
}

// Lookup returns the codec for a (tag1, tag2, type) triplet.
func (tc TagCodecs) Lookup(tag1, tag2, typ byte) (codec.Codec, error) {
	c, ok := tc[tagKey{Tag1: tag1, Tag2: tag2, Type: typ}]
	if !ok {
		return nil, errors.Wrapf(cramerr.ErrMissingCodec, "cramhdr: tag %c%c:%c", tag1, tag2, typ)
	}
	return c, nil
}
