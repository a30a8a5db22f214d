package block

// rANS-4x16 is rANS-static with an extra transform stage selected by the
// upper bits of an order byte, mirroring rANS_static4x16pr.c's X_PACK /
// X_RLE / X_CAT flags. X_4 (rotate across four interleaved streams) is a
// throughput optimization with no observable effect on the decode
// contract and is not modelled; see method_rans.go's doc comment and
// DESIGN.md.
import (
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

const (
	x4Pack byte = 0x80
	x4RLE  byte = 0x40
	x4Cat  byte = 0x20
	x4Order byte = 0x01 // low bit: order-0 vs order-1 of the underlying rANS stream
)

func rans4x16Encode(raw []byte) ([]byte, error) {
	var flags byte
	body := raw

	if packed, ok := packBytes(raw); ok {
		flags |= x4Pack
		body = packed
	} else if rle := rleEncode(raw); len(rle) < len(raw) {
		flags |= x4RLE
		body = rle
	}

	core, err := ransEncode(body, 0)
	if err != nil {
		return nil, err
	}
	if len(core)+5 >= len(raw) {
		// rANS overhead not worth it; store verbatim (X_CAT).
		out := []byte{x4Cat}
		out = append(out, bitio.WriteITF8(int32(len(raw)))...)
		return append(out, raw...), nil
	}

	out := []byte{flags}
	out = append(out, bitio.WriteITF8(int32(len(raw)))...)
	out = append(out, core...)
	return out, nil
}

func rans4x16Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, cramerr.ErrTruncatedInput
	}
	flags := data[0]
	c := &byteCursor{data: data[1:]}
	rawLen, err := bitio.ReadITF8(c)
	if err != nil {
		return nil, errors.Wrap(err, "rans4x16: raw length")
	}

	if flags&x4Cat != 0 {
		body := c.rest()
		if int32(len(body)) != rawLen {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "rans4x16: cat length %d != declared %d", len(body), rawLen)
		}
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}

	body, err := ransDecode(c.rest())
	if err != nil {
		return nil, err
	}

	switch {
	case flags&x4Pack != 0:
		return unpackBytes(body, int(rawLen))
	case flags&x4RLE != 0:
		return rleDecode(body, int(rawLen))
	default:
		if int32(len(body)) != rawLen {
			return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "rans4x16: length %d != declared %d", len(body), rawLen)
		}
		return body, nil
	}
}

// packBytes bit-packs data into 4 or 2 bits/symbol when its alphabet is
// small enough (<=16 or <=4 distinct symbols), prefixed with the sorted
// symbol alphabet so unpackBytes can invert it. Returns ok=false when
// packing would not help (alphabet too large).
func packBytes(data []byte) ([]byte, bool) {
	var seen [256]bool
	var alphabet []byte
	for _, b := range data {
		if !seen[b] {
			seen[b] = true
			alphabet = append(alphabet, b)
		}
	}
	if len(alphabet) > 16 || len(alphabet) == 0 {
		return nil, false
	}
	bitsPer := 4
	if len(alphabet) <= 4 {
		bitsPer = 2
	}
	// sort for determinism
	for i := 1; i < len(alphabet); i++ {
		for j := i; j > 0 && alphabet[j-1] > alphabet[j]; j-- {
			alphabet[j-1], alphabet[j] = alphabet[j], alphabet[j-1]
		}
	}
	symCode := map[byte]byte{}
	for i, s := range alphabet {
		symCode[s] = byte(i)
	}

	out := []byte{byte(bitsPer), byte(len(alphabet))}
	out = append(out, alphabet...)
	w := bitio.NewWriter(newByteSliceWriter(&out))
	for _, b := range data {
		if err := w.WriteBits(uint64(symCode[b]), uint8(bitsPer)); err != nil {
			return nil, false
		}
	}
	if err := w.Flush(); err != nil {
		return nil, false
	}
	return out, true
}

func unpackBytes(data []byte, rawLen int) ([]byte, error) {
	c := &byteCursor{data: data}
	bitsPerB, err := c.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans4x16: pack bits")
	}
	nSym, err := c.ReadByte()
	if err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans4x16: pack alphabet size")
	}
	alphabet := make([]byte, nSym)
	for i := range alphabet {
		alphabet[i], err = c.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans4x16: pack alphabet")
		}
	}
	r := bitio.NewReader(&byteCursorReader{c: c})
	out := make([]byte, rawLen)
	for i := range out {
		v, err := r.ReadBits(uint8(bitsPerB))
		if err != nil {
			return nil, err
		}
		if int(v) >= len(alphabet) {
			return nil, errors.Wrapf(cramerr.ErrInvalidRecord, "rans4x16: pack code %d out of range", v)
		}
		out[i] = alphabet[v]
	}
	return out, nil
}

// rleEncode run-length encodes data as a sequence of (run-length
// ITF-8, literal byte) pairs.
func rleEncode(data []byte) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		j := i + 1
		for j < len(data) && data[j] == data[i] && j-i < 1<<28 {
			j++
		}
		out = append(out, bitio.WriteITF8(int32(j-i))...)
		out = append(out, data[i])
		i = j
	}
	return out
}

func rleDecode(data []byte, rawLen int) ([]byte, error) {
	c := &byteCursor{data: data}
	out := make([]byte, 0, rawLen)
	for len(out) < rawLen {
		n, err := bitio.ReadITF8(c)
		if err != nil {
			return nil, errors.Wrap(err, "rans4x16: rle run length")
		}
		b, err := c.ReadByte()
		if err != nil {
			return nil, errors.Wrap(cramerr.ErrTruncatedInput, "rans4x16: rle literal")
		}
		for k := int32(0); k < n; k++ {
			out = append(out, b)
		}
	}
	if len(out) != rawLen {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "rans4x16: rle decoded %d bytes, want %d", len(out), rawLen)
	}
	return out, nil
}

// byteSliceWriter and byteCursorReader adapt append-based byte buffers and
// byteCursor to the io.Writer / io.Reader shapes bitio needs.
type byteSliceWriter struct{ buf *[]byte }

func newByteSliceWriter(buf *[]byte) *byteSliceWriter { return &byteSliceWriter{buf: buf} }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

type byteCursorReader struct{ c *byteCursor }

func (r *byteCursorReader) Read(p []byte) (int, error) {
	for i := range p {
		b, err := r.c.ReadByte()
		if err != nil {
			if i == 0 {
				return 0, err
			}
			return i, nil
		}
		p[i] = b
	}
	return len(p), nil
}
