package codec

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// xrleCodec is a whole-series run-length transform: the stream is a
// concatenation of (literal byte, repeat count) pairs, each literal
// emitted once plus `repeat count` further copies. repScore is carried in
// the descriptor but neither direction consults it: the encoder collapses
// every run, and decode reads every run length explicitly. Like xpack, a
// materialised series is cached per slice.
type xrleCodec struct {
	repScore [256]byte
	lenCodec Codec
	litCodec Codec

	mu    sync.Mutex
	cache map[uint64][]byte
}

func initXRLE(c *byteCursor, version int) (Codec, error) {
	var repScore [256]byte
	for i := range repScore {
		b, err := c.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "codec: xrle: rep score table")
		}
		repScore[i] = b
	}
	lenCodec, err := initNestedCodec(c, version)
	if err != nil {
		return nil, errors.Wrap(err, "codec: xrle: length codec")
	}
	litCodec, err := initNestedCodec(c, version)
	if err != nil {
		return nil, errors.Wrap(err, "codec: xrle: literal codec")
	}
	return &xrleCodec{
		repScore: repScore,
		lenCodec: lenCodec,
		litCodec: litCodec,
		cache:    make(map[uint64][]byte),
	}, nil
}

func (c *xrleCodec) Kind() Kind           { return KindXRLE }
func (c *xrleCodec) ValueKind() ValueKind { return ValByteArray }

func (c *xrleCodec) Store(version int) []byte {
	out := append([]byte(nil), c.repScore[:]...)
	out = append(out, writeRawDescriptor(c.lenCodec.Kind(), c.lenCodec.ValueKind(), c.lenCodec.Store(version))...)
	out = append(out, writeRawDescriptor(c.litCodec.Kind(), c.litCodec.ValueKind(), c.litCodec.Store(version))...)
	return out
}

func (c *xrleCodec) DecodeByteArray(src *Source, n int) ([]byte, error) {
	key := sliceCacheKey(src.SliceKey, "xrle")
	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		if len(cached) != n {
			return nil, errors.Errorf("codec: xrle: cached expansion has %d values, want %d", len(cached), n)
		}
		return cached, nil
	}
	c.mu.Unlock()

	litDec, ok := c.litCodec.(ByteDecoder)
	if !ok {
		return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xrle: literal codec is not a byte decoder")
	}
	lenDec, ok := c.lenCodec.(IntDecoder)
	if !ok {
		return nil, errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xrle: length codec is not an int decoder")
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		lit, err := litDec.DecodeByte(src)
		if err != nil {
			return nil, errors.Wrap(err, "codec: xrle: literal")
		}
		run, err := lenDec.DecodeInt(src)
		if err != nil {
			return nil, errors.Wrap(err, "codec: xrle: run length")
		}
		out = append(out, lit)
		for i := int64(0); i < run; i++ {
			out = append(out, lit)
		}
	}
	if len(out) != n {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "codec: xrle: expanded %d bytes, want %d", len(out), n)
	}

	c.mu.Lock()
	c.cache[key] = out
	c.mu.Unlock()
	return out, nil
}

func (c *xrleCodec) EncodeByteArray(sink *Sink, v []byte) error {
	litEnc, ok := c.litCodec.(ByteEncoder)
	if !ok {
		return errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xrle: literal codec is not a byte encoder")
	}
	lenEnc, ok := c.lenCodec.(IntEncoder)
	if !ok {
		return errors.Wrap(cramerr.ErrUnsupportedCodec, "codec: xrle: length codec is not an int encoder")
	}
	i := 0
	for i < len(v) {
		b := v[i]
		j := i + 1
		for j < len(v) && v[j] == b {
			j++
		}
		run := int64(j - i - 1)
		if err := litEnc.EncodeByte(sink, b); err != nil {
			return errors.Wrap(err, "codec: xrle: literal")
		}
		if err := lenEnc.EncodeInt(sink, run); err != nil {
			return errors.Wrap(err, "codec: xrle: run length")
		}
		i = j
	}
	return nil
}
