package block

// tok3 is CRAM's read-name tokeniser method. The pack's closest real
// analogue is axiomhq/fsst's learned symbol-table string compressor: we
// train an FSST table over the NUL-separated read names in the block and
// store the trained table alongside the FSST-compressed payload, rather
// than reimplementing io_lib's bespoke per-field tokeniser.

import (
	"bytes"
	"io"

	"github.com/axiomhq/fsst"
	"github.com/pkg/errors"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/cramerr"
)

func tok3Encode(raw []byte) ([]byte, error) {
	var names [][]byte
	for _, tok := range bytes.Split(raw, []byte{0}) {
		if len(tok) > 0 {
			names = append(names, tok)
		}
	}
	if len(names) == 0 {
		names = [][]byte{raw}
	}
	tbl := fsst.Train(names)

	out := new(bytes.Buffer)
	if _, err := tbl.WriteTo(out); err != nil {
		return nil, errors.Wrap(err, "tok3: write symbol table")
	}
	compressed := tbl.EncodeAll(raw)
	out.Write(bitio.WriteITF8(int32(len(raw))))
	out.Write(bitio.WriteITF8(int32(len(compressed))))
	out.Write(compressed)
	return out.Bytes(), nil
}

func tok3Decode(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)
	tbl := new(fsst.Table)
	if _, err := tbl.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "tok3: read symbol table")
	}
	rawLen, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "tok3: raw length")
	}
	compLen, err := bitio.ReadITF8(r)
	if err != nil {
		return nil, errors.Wrap(err, "tok3: compressed length")
	}
	compressed := make([]byte, compLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, errors.Wrap(cramerr.ErrTruncatedInput, "tok3: payload")
	}
	raw := tbl.DecodeAll(compressed)
	if int32(len(raw)) != rawLen {
		return nil, errors.Wrapf(cramerr.ErrMalformedHeader, "tok3: decoded %d bytes, want %d", len(raw), rawLen)
	}
	return raw, nil
}
