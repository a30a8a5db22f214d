package block

// Static order-0/1 rANS (range asymmetric numeral systems) coding, in the
// style of Fabian Giesen's rans_byte.h (the algorithm io_lib's
// rANS_static4x16pr.c itself builds on): a single 32-bit rANS state,
// byte-aligned renormalization, and an explicit, self-describing
// frequency table ahead of the coded payload.
//
// This implements the coding core faithfully but, unlike
// rANS_static4x16pr.c, does not interleave four independent states into
// one byte stream: interleaving is a throughput optimization and the
// observable decode contract (decode(encode(v)) == v) does not depend on
// it. See DESIGN.md.

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

const (
	ransScaleBits = 12
	ransScaleSize = 1 << ransScaleBits
	ransL         = uint32(1) << 23
)

type ransFreqTable struct {
	freq [256]uint32
	cum  [257]uint32
	// slot2sym maps a normalized cumulative-frequency slot to its symbol,
	// giving O(1) decode instead of a binary search over cum[].
	slot2sym [ransScaleSize]byte
}

func newFreqTableFromCounts(counts [256]int) *ransFreqTable {
	t := &ransFreqTable{}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return t
	}

	// Scale counts to sum to ransScaleSize, keeping every present symbol
	// at frequency >= 1, then correct rounding error on the largest
	// bucket.
	sum := 0
	for s, c := range counts {
		if c == 0 {
			continue
		}
		f := uint32(c) * ransScaleSize / uint32(total)
		if f == 0 {
			f = 1
		}
		t.freq[s] = f
		sum += int(f)
	}
	diff := ransScaleSize - sum
	if diff != 0 {
		best := -1
		for s, f := range t.freq {
			if f == 0 {
				continue
			}
			if best == -1 || t.freq[s] > t.freq[best] {
				best = s
			}
		}
		t.freq[best] = uint32(int(t.freq[best]) + diff)
	}

	var cum uint32
	for s := range t.freq {
		t.cum[s] = cum
		cum += t.freq[s]
		for slot := t.cum[s]; slot < cum; slot++ {
			t.slot2sym[slot] = byte(s)
		}
	}
	t.cum[256] = cum
	return t
}

func countSymbols(data []byte) [256]int {
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	return counts
}

// writeFreqTable serialises a sparse (symbol, frequency) table: ITF-8
// symbol count, then for each present symbol a byte symbol and an ITF-8
// frequency.
func writeFreqTable(buf []byte, t *ransFreqTable) []byte {
	n := 0
	for _, f := range t.freq {
		if f > 0 {
			n++
		}
	}
	buf = append(buf, bitio.WriteITF8(int32(n))...)
	for s, f := range t.freq {
		if f == 0 {
			continue
		}
		buf = append(buf, byte(s))
		buf = append(buf, bitio.WriteITF8(int32(f))...)
	}
	return buf
}

func readFreqTable(r *byteCursor) (*ransFreqTable, error) {
	n, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "rans: freq table count")
	}
	var counts [256]int
	for i := int32(0); i < n; i++ {
		sym, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans: freq table symbol")
		}
		f, err := bitio.ReadITF8(r)
		if err != nil {
			return nil, errors.Wrap(err, "rans: freq table frequency")
		}
		counts[sym] = int(f)
	}
	t := &ransFreqTable{}
	var cum uint32
	for s, c := range counts {
		t.freq[s] = uint32(c)
		t.cum[s] = cum
		cum += uint32(c)
		for slot := t.cum[s]; slot < cum; slot++ {
			t.slot2sym[slot] = byte(s)
		}
	}
	t.cum[256] = cum
	return t, nil
}

// byteCursor is a minimal forward byte reader over a slice, used by the
// block compression methods that need io.ByteReader without pulling in a
// bytes.Reader for a handful of calls.
type byteCursor struct {
	data []byte
	pos  int
}

func (c *byteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, errors.New("byteCursor: EOF")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *byteCursor) rest() []byte {
	return c.data[c.pos:]
}

// ransEncode encodes raw with a static order-0 (context == 0) or order-1
// (context == previous byte) frequency model.
func ransEncode(raw []byte, order int) ([]byte, error) {
	out := []byte{byte(order)}
	out = append(out, 0, 0, 0, 0) // placeholder for raw length
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(raw)))

	if order == 0 {
		counts := countSymbols(raw)
		tbl := newFreqTableFromCounts(counts)
		out = writeFreqTable(out, tbl)
		payload, err := ransEncodeStream(raw, tbl)
		if err != nil {
			return nil, err
		}
		return append(out, payload...), nil
	}

	// Order-1: one frequency table per distinct preceding-byte context.
	ctxCounts := make(map[byte]*[256]int)
	prev := byte(0)
	for _, b := range raw {
		c, ok := ctxCounts[prev]
		if !ok {
			c = &[256]int{}
			ctxCounts[prev] = c
		}
		c[b]++
		prev = b
	}
	out = append(out, bitio.WriteITF8(int32(len(ctxCounts)))...)
	tables := make(map[byte]*ransFreqTable, len(ctxCounts))
	for ctx, counts := range ctxCounts {
		tbl := newFreqTableFromCounts(*counts)
		tables[ctx] = tbl
		out = append(out, ctx)
		out = writeFreqTable(out, tbl)
	}

	payload, err := ransEncodeStreamOrder1(raw, tables)
	if err != nil {
		return nil, err
	}
	return append(out, payload...), nil
}

// ransEncodeStream runs the rANS core over data under a single static
// table, encoding symbols in reverse and reversing the emitted bytes so
// the result reads forward for the decoder.
func ransEncodeStream(data []byte, tbl *ransFreqTable) ([]byte, error) {
	var enc []byte
	x := ransL
	for i := len(data) - 1; i >= 0; i-- {
		s := data[i]
		freq := tbl.freq[s]
		if freq == 0 {
			return nil, errors.Errorf("rans: symbol %d has zero frequency", s)
		}
		start := tbl.cum[s]
		max := ((ransL >> ransScaleBits) << 8) * freq
		for x >= max {
			enc = append(enc, byte(x))
			x >>= 8
		}
		x = (x/freq)<<ransScaleBits + x%freq + start
	}
	// Appended big-endian so that, after the reversal below, the state
	// leads the stream in the little-endian order the decoder reads.
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], x)
	enc = append(enc, tail[:]...)
	reverseBytes(enc)
	return enc, nil
}

func ransEncodeStreamOrder1(data []byte, tables map[byte]*ransFreqTable) ([]byte, error) {
	var enc []byte
	x := ransL
	prev := byte(0)
	ctxs := make([]byte, len(data))
	for i, b := range data {
		ctxs[i] = prev
		prev = b
	}
	for i := len(data) - 1; i >= 0; i-- {
		s := data[i]
		tbl := tables[ctxs[i]]
		freq := tbl.freq[s]
		if freq == 0 {
			return nil, errors.Errorf("rans: order-1 symbol %d has zero frequency in context %d", s, ctxs[i])
		}
		start := tbl.cum[s]
		max := ((ransL >> ransScaleBits) << 8) * freq
		for x >= max {
			enc = append(enc, byte(x))
			x >>= 8
		}
		x = (x/freq)<<ransScaleBits + x%freq + start
	}
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], x)
	enc = append(enc, tail[:]...)
	reverseBytes(enc)
	return enc, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func ransDecode(data []byte) ([]byte, error) {
	c := &byteCursor{data: data}
	orderByte, err := c.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans: order byte")
	}
	if c.pos+4 > len(c.data) {
		return nil, cramerr.ErrTruncatedInput
	}
	rawLen := binary.LittleEndian.Uint32(c.data[c.pos : c.pos+4])
	c.pos += 4

	if orderByte == 0 {
		tbl, err := readFreqTable(c)
		if err != nil {
			return nil, err
		}
		return ransDecodeStream(c.rest(), tbl, int(rawLen))
	}
	if orderByte != 1 {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "rans: unknown order byte %d", orderByte)
	}
	nCtx, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "rans: context count")
	}
	tables := make(map[byte]*ransFreqTable, nCtx)
	for i := int32(0); i < nCtx; i++ {
		ctx, err := c.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans: context byte")
		}
		tbl, err := readFreqTable(c)
		if err != nil {
			return nil, err
		}
		tables[ctx] = tbl
	}
	return ransDecodeStreamOrder1(c.rest(), tables, int(rawLen))
}

func ransDecodeStream(payload []byte, tbl *ransFreqTable, n int) ([]byte, error) {
	if len(payload) < 4 {
		return nil, cramerr.ErrTruncatedInput
	}
	x := binary.LittleEndian.Uint32(payload[:4])
	pos := 4
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		slot := x & (ransScaleSize - 1)
		s := tbl.slot2sym[slot]
		out[i] = s
		x = tbl.freq[s]*(x>>ransScaleBits) + slot - tbl.cum[s]
		for x < ransL {
			if pos >= len(payload) {
				return nil, cramerr.ErrTruncatedInput
			}
			x = x<<8 | uint32(payload[pos])
			pos++
		}
	}
	return out, nil
}

func ransDecodeStreamOrder1(payload []byte, tables map[byte]*ransFreqTable, n int) ([]byte, error) {
	if len(payload) < 4 {
		return nil, cramerr.ErrTruncatedInput
	}
	x := binary.LittleEndian.Uint32(payload[:4])
	pos := 4
	out := make([]byte, n)
	prev := byte(0)
	for i := 0; i < n; i++ {
		tbl, ok := tables[prev]
		if !ok {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "rans: order-1 missing table for context %d", prev)
		}
		slot := x & (ransScaleSize - 1)
		s := tbl.slot2sym[slot]
		out[i] = s
		x = tbl.freq[s]*(x>>ransScaleBits) + slot - tbl.cum[s]
		for x < ransL {
			if pos >= len(payload) {
				return nil, cramerr.ErrTruncatedInput
			}
			x = x<<8 | uint32(payload[pos])
			pos++
		}
		prev = s
	}
	return out, nil
}
