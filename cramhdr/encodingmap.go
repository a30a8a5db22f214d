package cramhdr

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramerr"
)

// SeriesCodecs is the record-encoding map: a codec per data series.
// Series absent from the map have no codec; attempting to decode one
// that the caller's required fields demand surfaces MissingCodec.
type SeriesCodecs map[Series]codec.Codec

func ReadSeriesCodecs(r io.ByteReader, version int) (SeriesCodecs, error) {
	if _, err := bitio.ReadITF8(r); err != nil { // byte_size, unused on read
		return nil, errors.Wrap(err, "cramhdr: record-encoding map size")
	}
	count, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "cramhdr: record-encoding map count")
	}
	out := make(SeriesCodecs, count)
	for i := int32(0); i < count; i++ {
		k1, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: series key")
		}
		k2, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrMalformedHeader, "cramhdr: series key")
		}
		series := Series([]byte{k1, k2})

		c, err := readCodecDescriptor(r, series, version)
		if err != nil {
			return nil, err
		}
		// Unrecognised series keys are kept (not dropped) so a later
		// encode round trip is lossless; only decode-time lookups for
		// genuinely unknown series fail.
		out[series] = c
	}
	return out, nil
}

// readCodecDescriptor reads the shared (encoding_id byte, codec_bytes_len,
// codec_bytes) shape used by both the record- and tag-encoding maps, and
// builds the concrete Codec for it.
func readCodecDescriptor(r io.ByteReader, series Series, version int) (codec.Codec, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrMalformedDescriptor, "cramhdr: codec kind")
	}
	n, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "cramhdr: codec descriptor length")
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i], err = r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "cramhdr: codec descriptor bytes")
		}
	}
	vk, ok := ValueKindFor(series)
	if !ok {
		// Unknown series: value kind can't be determined, but per
		// spec.md unknown keys must still be tolerated. Byte-array is
		// the safest default (the descriptor is preserved verbatim on
		// re-encode either way).
		vk = codec.ValByteArray
	}
	c, err := codec.InitFromDescriptor(codec.Kind(kindByte), vk, buf, version)
	if err != nil {
		return nil, errors.Wrapf(err, "cramhdr: series %q codec", series)
	}
	return c, nil
}

func (sc SeriesCodecs) write(version int) []byte {
	var items []byte
	for series, c := range sc {
		items = append(items, series[0], series[1])
		items = append(items, byte(c.Kind()))
		body := c.Store(version)
		items = append(items, bitio.WriteITF8(int32(len(body)))...)
		items = append(items, body...)
	}
	out := bitio.WriteITF8(int32(len(items)))
	out = append(out, bitio.WriteITF8(int32(len(sc)))...)
	return append(out, items...)
}

// Lookup returns the codec for a series, or MissingCodec if absent.
func (sc SeriesCodecs) Lookup(s Series) (codec.Codec, error) {
	c, ok := sc[s]
	if !ok {
		return nil, errors.Wrapf(cramerr.ErrMissingCodec, "cramhdr: series %q", s)
	}
	return c, nil
}
