package slice

import (
	"bytes"
	"testing"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramhdr"
)

type memBlocks struct {
	reads map[int32]*block.Block
}

func newMemBlocks() *memBlocks {
	return &memBlocks{reads: make(map[int32]*block.Block)}
}

func (m *memBlocks) put(id int32, data []byte) {
	m.reads[id] = block.NewRawBlock(block.ContentExternal, id, append([]byte(nil), data...))
}

func (m *memBlocks) readFn(id int32) (*block.Block, error) {
	return m.reads[id], nil
}

func externalCodec(t *testing.T, vk codec.ValueKind, contentID int32) codec.Codec {
	t.Helper()
	c, err := codec.InitFromDescriptor(codec.KindExternal, vk, bitio.WriteITF8(contentID), 3)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDecodeSequenceNoFeaturesIsPlainMatch(t *testing.T) {
	mb := newMemBlocks()
	mb.put(1, bitio.WriteITF8(0)) // FN = 0

	sc := cramhdr.SeriesCodecs{
		cramhdr.SeriesFN: externalCodec(t, codec.ValInt32, 1),
	}
	src := &codec.Source{Core: bitio.NewReader(new(bytes.Buffer)), External: mb.readFn}

	ref := refWindow{start: 0, bases: []byte("ACGTACGT")}
	res, err := decodeSequence(src, sc, cramhdr.DefaultSubstitutionMatrix(), ref, 1, 4, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.seq) != "ACGT" {
		t.Errorf("seq = %q, want ACGT", res.seq)
	}
	if len(res.cigar) != 1 || res.cigar[0].Op != 'M' || res.cigar[0].Length != 4 {
		t.Errorf("cigar = %+v, want single 4M", res.cigar)
	}
	if res.aend != 4 {
		t.Errorf("aend = %d, want 4", res.aend)
	}
}

func TestDecodeSequenceSubstitution(t *testing.T) {
	mb := newMemBlocks()
	mb.put(1, bitio.WriteITF8(1)) // FN = 1
	mb.put(2, []byte{'X'})        // FC
	mb.put(3, bitio.WriteITF8(0)) // FP delta
	mb.put(4, []byte{0})          // BS: code 0 -> first alt base

	sc := cramhdr.SeriesCodecs{
		cramhdr.SeriesFN: externalCodec(t, codec.ValInt32, 1),
		cramhdr.SeriesFC: externalCodec(t, codec.ValByte, 2),
		cramhdr.SeriesFP: externalCodec(t, codec.ValInt32, 3),
		cramhdr.SeriesBS: externalCodec(t, codec.ValByte, 4),
	}
	src := &codec.Source{Core: bitio.NewReader(new(bytes.Buffer)), External: mb.readFn}

	ref := refWindow{start: 0, bases: []byte("AAAA")}
	res, err := decodeSequence(src, sc, cramhdr.DefaultSubstitutionMatrix(), ref, 1, 4, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.seq[0] == 'A' {
		t.Errorf("expected a substitution at position 0, got seq %q", res.seq)
	}
	if res.nm != 1 {
		t.Errorf("nm = %d, want 1", res.nm)
	}
	if res.md == "" {
		t.Error("expected a non-empty MD string")
	}
}
