package codec

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

// huffmanCode is one canonical entry: symbol, its assigned code length,
// and (once assigned) its bit pattern.
type huffmanCode struct {
	symbol int64
	length uint8
	code   uint32
}

// huffmanCodec decodes/encodes via a canonical Huffman table: codes of
// equal length are consecutive, and every step to a longer length shifts
// left by the length delta, per spec.md's canonical assignment rule.
type huffmanCodec struct {
	valueKind ValueKind
	codes     []huffmanCode          // sorted by (length, symbol), codes assigned
	bySymbol  map[int64]huffmanCode
}

func initHuffman(c *byteCursor, valueKind ValueKind) (Codec, error) {
	n, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "codec: huffman: ncodes")
	}
	codes := make([]huffmanCode, n)
	for i := range codes {
		sym, err := bitio.ReadITF8(c)
		if err != nil {
			return nil, errors.Wrap(err, "codec: huffman: symbol")
		}
		codes[i].symbol = int64(sym)
	}
	for i := range codes {
		length, err := bitio.ReadITF8(c)
		if err != nil {
			return nil, errors.Wrap(err, "codec: huffman: length")
		}
		codes[i].length = uint8(length)
	}
	assignCanonicalCodes(codes)
	bySymbol := make(map[int64]huffmanCode, len(codes))
	for _, hc := range codes {
		bySymbol[hc.symbol] = hc
	}
	return &huffmanCodec{valueKind: valueKind, codes: codes, bySymbol: bySymbol}, nil
}

// assignCanonicalCodes sorts by (length, symbol) and assigns codes in
// non-decreasing length order starting from 0: each new code of the same
// length is previous+1, and each new length shifts left by the delta.
func assignCanonicalCodes(codes []huffmanCode) {
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].length != codes[j].length {
			return codes[i].length < codes[j].length
		}
		return codes[i].symbol < codes[j].symbol
	})
	var code uint32
	var prevLen uint8
	for i := range codes {
		if i > 0 {
			delta := codes[i].length - prevLen
			code = (code + 1) << delta
		}
		codes[i].code = code
		prevLen = codes[i].length
	}
}

func (c *huffmanCodec) Kind() Kind           { return KindHuffman }
func (c *huffmanCodec) ValueKind() ValueKind { return c.valueKind }

func (c *huffmanCodec) Store(int) []byte {
	out := bitio.WriteITF8(int32(len(c.codes)))
	// codes are kept in canonical (length, symbol) order; original
	// insertion order is not preserved, which is fine since canonical
	// assignment is a pure function of (symbol, length) pairs.
	for _, hc := range c.codes {
		out = append(out, bitio.WriteITF8(int32(hc.symbol))...)
	}
	for _, hc := range c.codes {
		out = append(out, bitio.WriteITF8(int32(hc.length))...)
	}
	return out
}

func (c *huffmanCodec) decodeSymbol(src *Source) (int64, error) {
	if len(c.codes) == 0 {
		return 0, cramerr.ErrUnsupportedCodec
	}
	if len(c.codes) == 1 && c.codes[0].length == 0 {
		return c.codes[0].symbol, nil
	}
	var code uint32
	var length uint8
	for length < 32 {
		bit, err := src.Core.ReadBool()
		if err != nil {
			return 0, errors.Wrap(err, "codec: huffman: decode")
		}
		code <<= 1
		if bit {
			code |= 1
		}
		length++
		for _, hc := range c.codes {
			if hc.length == length && hc.code == code {
				return hc.symbol, nil
			}
		}
	}
	return 0, errors.Wrap(cramerr.ErrMalformedDescriptor, "codec: huffman: no matching code")
}

func (c *huffmanCodec) encodeSymbol(sink *Sink, symbol int64) error {
	hc, ok := c.bySymbol[symbol]
	if !ok {
		return errors.Wrapf(cramerr.ErrUnsupportedCodec, "codec: huffman: symbol %d not in table", symbol)
	}
	if hc.length == 0 {
		return nil
	}
	return sink.Core.WriteBits(uint64(hc.code), hc.length)
}

func (c *huffmanCodec) DecodeInt(src *Source) (int64, error) {
	return c.decodeSymbol(src)
}

func (c *huffmanCodec) EncodeInt(sink *Sink, v int64) error {
	return c.encodeSymbol(sink, v)
}

func (c *huffmanCodec) DecodeByte(src *Source) (byte, error) {
	v, err := c.decodeSymbol(src)
	return byte(v), err
}

func (c *huffmanCodec) EncodeByte(sink *Sink, v byte) error {
	return c.encodeSymbol(sink, int64(v))
}
