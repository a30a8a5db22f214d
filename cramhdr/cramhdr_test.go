package cramhdr_test

import (
	"io"
	"testing"

	"github.com/go-cram/gocram/bitio"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramhdr"
)

func TestSubstitutionMatrixRoundTrip(t *testing.T) {
	sm := cramhdr.DefaultSubstitutionMatrix()
	raw := sm.Encode()
	got := cramhdr.DecodeSubstitutionMatrix(raw)
	for _, ref := range []byte{'A', 'C', 'G', 'T', 'N'} {
		for code := byte(0); code < 4; code++ {
			want := sm.Resolve(ref, code)
			if g := got.Resolve(ref, code); g != want {
				t.Errorf("ref=%c code=%d: got %c, want %c", ref, code, g, want)
			}
		}
	}
}

func TestSubstitutionMatrixCodeFor(t *testing.T) {
	sm := cramhdr.DefaultSubstitutionMatrix()
	code, ok := sm.CodeFor('A', 'G')
	if !ok {
		t.Fatal("expected a code for A->G")
	}
	if got := sm.Resolve('A', code); got != 'G' {
		t.Errorf("resolve(A, CodeFor(A,G)) = %c, want G", got)
	}
}

func TestTagDictionaryRoundTrip(t *testing.T) {
	td := cramhdr.TagDictionary{
		Lines: [][]cramhdr.TagSpec{
			{{Tag1: 'N', Tag2: 'M', Type: 'i'}, {Tag1: 'M', Tag2: 'D', Type: 'Z'}},
			{{Tag1: 'R', Tag2: 'G', Type: 'Z'}},
			nil,
		},
	}
	pm := cramhdr.DefaultPreservationMap()
	pm.TagDict = td
	encoded := pm.Write()

	decoded, err := cramhdr.ReadPreservationMap(newByteReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.TagDict.Lines) != len(td.Lines) {
		t.Fatalf("got %d lines, want %d", len(decoded.TagDict.Lines), len(td.Lines))
	}
	for i, line := range td.Lines {
		got, ok := decoded.TagDict.Line(int32(i))
		if !ok {
			t.Fatalf("line %d missing", i)
		}
		if len(got) != len(line) {
			t.Fatalf("line %d: got %d tags, want %d", i, len(got), len(line))
		}
		for j, ts := range line {
			if got[j] != ts {
				t.Errorf("line %d tag %d = %+v, want %+v", i, j, got[j], ts)
			}
		}
	}
}

func TestPreservationMapDefaults(t *testing.T) {
	pm := cramhdr.DefaultPreservationMap()
	if !pm.APDelta || !pm.ReferenceRequired || !pm.QualInRefOrder {
		t.Fatal("expected AP/RR/QO to default true")
	}
	if pm.ReadNamesPreserved {
		t.Fatal("expected RN to default false")
	}
}

func TestCompressionHeaderRoundTrip(t *testing.T) {
	h := &cramhdr.CompressionHeader{
		Preservation: cramhdr.DefaultPreservationMap(),
		Series:       cramhdr.SeriesCodecs{},
		Tags:         cramhdr.TagCodecs{},
	}
	bfDesc := bitio.WriteITF8(2) // external content id
	bf, err := codec.InitFromDescriptor(codec.KindExternal, codec.ValInt32, bfDesc, 3)
	if err != nil {
		t.Fatal(err)
	}
	h.Series[cramhdr.SeriesBF] = bf

	b := h.WriteBlock(3)
	got, err := cramhdr.ReadCompressionHeader(b, 3)
	if err != nil {
		t.Fatal(err)
	}
	c, err := got.Series.Lookup(cramhdr.SeriesBF)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != codec.KindExternal {
		t.Errorf("BF codec kind = %v, want external", c.Kind())
	}
}

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}
