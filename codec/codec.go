// Package codec implements the CRAM codec catalogue: the polymorphic
// encoders/decoders a compression header maps each data series and tag to.
// Every variant is keyed by a (Kind, ValueKind) pair and built from a
// serialised descriptor at compression-header decode time; a Source
// bundles the slice-local CORE bitstream and external-block lookup a codec
// needs to do its work, so a Codec itself stays immutable and shareable
// across every record in the slice, per spec.md's lifecycle note.
package codec

import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// Kind is a codec variant tag.
type Kind byte

const (
	KindNull Kind = iota
	KindExternal
	KindBeta
	KindSubexp
	KindGamma
	KindHuffman
	KindByteArrayLen
	KindByteArrayStop
	KindXPack
	KindXRLE
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindExternal:
		return "external"
	case KindBeta:
		return "beta"
	case KindSubexp:
		return "subexp"
	case KindGamma:
		return "gamma"
	case KindHuffman:
		return "huffman"
	case KindByteArrayLen:
		return "byte-array-len"
	case KindByteArrayStop:
		return "byte-array-stop"
	case KindXPack:
		return "xpack"
	case KindXRLE:
		return "xrle"
	default:
		return "unknown"
	}
}

// ValueKind is the shape of value a codec instance produces: one of the
// four data-series value kinds the compression header fixes per series.
type ValueKind byte

const (
	ValInt32 ValueKind = iota
	ValInt64
	ValByte
	ValByteArray
)

// Codec is the common shape every catalogue entry satisfies. A given
// instance additionally implements the decoder/encoder interface matching
// its ValueKind (IntDecoder/IntEncoder for ValInt32/ValInt64, ByteDecoder/
// ByteEncoder for ValByte, ByteArrayDecoder/ByteArrayEncoder for
// ValByteArray) — slice decode dispatches on ValueKind and type-asserts
// accordingly.
type Codec interface {
	Kind() Kind
	ValueKind() ValueKind
	// Store serialises the codec's descriptor (not including the
	// leading kind/value-kind tag, which the compression header itself
	// stores).
	Store(version int) []byte
}

// Source bundles what a codec needs to read from during decode: the
// slice's CORE bitstream for non-external codecs, and a lookup for
// external blocks keyed by content id.
type Source struct {
	Core     *bitio.Reader
	External func(contentID int32) (*block.Block, error)
	// SliceKey identifies the slice currently being decoded. The
	// transform codecs (xpack, xrle) materialise their whole series on
	// first use and cache it keyed by this value, since a single Codec
	// instance is shared across every slice governed by the same
	// compression header and may be invoked concurrently by a worker
	// pool decoding several slices at once.
	SliceKey uint64
}

// Sink bundles what a codec needs to write to during encode.
type Sink struct {
	Core     *bitio.Writer
	External func(contentID int32) (*ExternalWriter, error)
}

// ExternalWriter accumulates bytes for one external block during encode.
type ExternalWriter struct {
	Buf []byte
}

func (w *ExternalWriter) WriteByte(b byte) error {
	w.Buf = append(w.Buf, b)
	return nil
}

func (w *ExternalWriter) Write(p []byte) (int, error) {
	w.Buf = append(w.Buf, p...)
	return len(p), nil
}

// IntDecoder is implemented by codecs whose ValueKind is ValInt32 or
// ValInt64.
type IntDecoder interface {
	DecodeInt(src *Source) (int64, error)
}

// IntEncoder is implemented by codecs whose ValueKind is ValInt32 or
// ValInt64 and which support encoding (all do except the null codec).
type IntEncoder interface {
	EncodeInt(sink *Sink, v int64) error
}

// ByteDecoder is implemented by codecs whose ValueKind is ValByte.
type ByteDecoder interface {
	DecodeByte(src *Source) (byte, error)
}

// ByteEncoder is implemented by codecs whose ValueKind is ValByte.
type ByteEncoder interface {
	EncodeByte(sink *Sink, v byte) error
}

// ByteArrayDecoder is implemented by codecs whose ValueKind is
// ValByteArray. n is a hint (e.g. a record's read length); codecs that
// determine their own length (byte-array-len, byte-array-stop) ignore it.
type ByteArrayDecoder interface {
	DecodeByteArray(src *Source, n int) ([]byte, error)
}

// ByteArrayEncoder is implemented by codecs whose ValueKind is
// ValByteArray.
type ByteArrayEncoder interface {
	EncodeByteArray(sink *Sink, v []byte) error
}

// rawDescriptor is the self-delimiting wire shape used to nest one
// codec's descriptor inside another's (byte-array-len's two child codecs,
// xpack/xrle's sub-codec). Not part of spec.md's wire format verbatim
// (which leaves codec descriptor bytes unspecified beyond "kind, length,
// bytes"); this is our concrete, self-consistent choice, recorded in
// DESIGN.md.
type rawDescriptor struct {
	Kind      Kind
	ValueKind ValueKind
	Bytes     []byte
}

func writeRawDescriptor(kind Kind, valueKind ValueKind, descBytes []byte) []byte {
	out := []byte{byte(kind), byte(valueKind)}
	out = append(out, bitio.WriteITF8(int32(len(descBytes)))...)
	return append(out, descBytes...)
}

func readRawDescriptor(r *byteCursor) (rawDescriptor, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return rawDescriptor{}, errors.Wrap(cramerr.ErrMalformedDescriptor, "codec: nested kind")
	}
	valKindByte, err := r.ReadByte()
	if err != nil {
		return rawDescriptor{}, errors.Wrap(cramerr.ErrMalformedDescriptor, "codec: nested value kind")
	}
	n, err := bitio.ReadITF8(r)
	if err != nil {
		return rawDescriptor{}, errors.Wrap(err, "codec: nested descriptor length")
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i], err = r.ReadByte()
		if err != nil {
			return rawDescriptor{}, errors.Wrap(cramerr.ErrTruncatedInput, "codec: nested descriptor bytes")
		}
	}
	return rawDescriptor{Kind: Kind(kindByte), ValueKind: ValueKind(valKindByte), Bytes: buf}, nil
}

// byteCursor is a minimal forward byte reader over a descriptor slice.
type byteCursor struct {
	data []byte
	pos  int
}

func newByteCursor(data []byte) *byteCursor { return &byteCursor{data: data} }

func (c *byteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, errors.New("codec: descriptor: unexpected end")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *byteCursor) remaining() []byte { return c.data[c.pos:] }

// InitFromDescriptor builds a Codec instance of the given kind/value kind
// from its serialised descriptor bytes (as stored in a compression
// header's record- or tag-encoding map).
func InitFromDescriptor(kind Kind, valueKind ValueKind, descBytes []byte, version int) (Codec, error) {
	c := newByteCursor(descBytes)
	switch kind {
	case KindNull:
		return newNullCodec(valueKind), nil
	case KindExternal:
		return initExternal(c, valueKind)
	case KindBeta:
		return initBeta(c, valueKind)
	case KindSubexp:
		return initSubexp(c, valueKind)
	case KindGamma:
		return initGamma(c, valueKind)
	case KindHuffman:
		return initHuffman(c, valueKind)
	case KindByteArrayLen:
		return initByteArrayLen(c, version)
	case KindByteArrayStop:
		return initByteArrayStop(c)
	case KindXPack:
		return initXPack(c, version)
	case KindXRLE:
		return initXRLE(c, version)
	default:
		return nil, errors.Wrapf(cramerr.ErrUnsupportedCodec, "codec: kind byte %d", kind)
	}
}

// initNestedCodec parses and builds a full child Codec from a nested raw
// descriptor.
func initNestedCodec(c *byteCursor, version int) (Codec, error) {
	raw, err := readRawDescriptor(c)
	if err != nil {
		return nil, err
	}
	return InitFromDescriptor(raw.Kind, raw.ValueKind, raw.Bytes, version)
}
