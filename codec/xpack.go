package codec

import (
	"bytes"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// bytesAppendWriter is a minimal io.Writer that appends to a byte slice,
// used to build small in-memory bit-packed blocks before handing them to
// a sub codec.
type bytesAppendWriter struct {
	buf *[]byte
}

func (w *bytesAppendWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// xpackCodec is a whole-series bit-packing transform: every value of a
// data series is packed to nbits and handed to subCodec as one block,
// with rmap giving the packed-code -> original-byte mapping used to
// expand it back. Because a single codec instance is shared across every
// slice a compression header governs, expansions are cached per slice
// (keyed by Source.SliceKey, hashed with xxhash) so concurrent slice
// decoding never races on the same cache entry and repeat calls for one
// slice are free.
type xpackCodec struct {
	nbits    uint8
	rmap     []byte       // packed code -> original byte, length 1<<nbits
	toCode   map[byte]byte // original byte -> packed code
	subCodec Codec

	mu    sync.Mutex
	cache map[uint64][]byte
}

func initXPack(c *byteCursor, version int) (Codec, error) {
	nbits, err := c.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "codec: xpack: nbits")
	}
	rmapLen, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: xpack: rmap length")
	}
	rmap := make([]byte, rmapLen)
	for i := range rmap {
		rmap[i], err = c.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "codec: xpack: rmap entry")
		}
	}
	sub, err := initNestedCodec(c, version)
	if err != nil {
		return nil, errors.Wrap(err, "codec: xpack: sub codec")
	}
	toCode := make(map[byte]byte, len(rmap))
	for code, sym := range rmap {
		toCode[sym] = byte(code)
	}
	return &xpackCodec{
		nbits:    nbits,
		rmap:     rmap,
		toCode:   toCode,
		subCodec: sub,
		cache:    make(map[uint64][]byte),
	}, nil
}

func (c *xpackCodec) Kind() Kind           { return KindXPack }
func (c *xpackCodec) ValueKind() ValueKind { return ValByteArray }

func (c *xpackCodec) Store(version int) []byte {
	out := []byte{c.nbits}
	out = append(out, bitio.WriteITF8(int32(len(c.rmap)))...)
	out = append(out, c.rmap...)
	out = append(out, writeRawDescriptor(c.subCodec.Kind(), c.subCodec.ValueKind(), c.subCodec.Store(version))...)
	return out
}

func packedByteLen(n int, nbits uint8) int {
	bits := n * int(nbits)
	return (bits + 7) / 8
}

func sliceCacheKey(base uint64, salt string) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(base >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(salt))
	return h.Sum64()
}

func (c *xpackCodec) DecodeByteArray(src *Source, n int) ([]byte, error) {
	key := sliceCacheKey(src.SliceKey, "xpack")
	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		if len(cached) != n {
			return nil, errors.Errorf("codec: xpack: cached expansion has %d values, want %d", len(cached), n)
		}
		return cached, nil
	}
	c.mu.Unlock()

	subBA, ok := c.subCodec.(ByteArrayDecoder)
	if !ok {
		return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xpack: sub codec is not a byte-array decoder")
	}
	packed, err := subBA.DecodeByteArray(src, packedByteLen(n, c.nbits))
	if err != nil {
		return nil, errors.Wrap(err, "codec: xpack: packed block")
	}
	br := bitio.NewReader(bytes.NewReader(packed))
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		code, err := br.ReadBits(c.nbits)
		if err != nil {
			return nil, errors.Wrap(err, "codec: xpack: unpack")
		}
		if int(code) >= len(c.rmap) {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "codec: xpack: code %d out of range", code)
		}
		out[i] = c.rmap[code]
	}

	c.mu.Lock()
	c.cache[key] = out
	c.mu.Unlock()
	return out, nil
}

func (c *xpackCodec) EncodeByteArray(sink *Sink, v []byte) error {
	subBA, ok := c.subCodec.(ByteArrayEncoder)
	if !ok {
		return errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xpack: sub codec is not a byte-array encoder")
	}
	var buf []byte
	bw := bitio.NewWriter(&bytesAppendWriter{buf: &buf})
	for _, b := range v {
		code, ok := c.toCode[b]
		if !ok {
			return errors.Errorf("codec: xpack: byte 0x%02x not in remap table", b)
		}
		if err := bw.WriteBits(uint64(code), c.nbits); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return subBA.EncodeByteArray(sink, buf)
}
