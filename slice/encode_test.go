package slice

import (
	"bytes"
	"testing"

	"github.com/go-cram/gocram/bamrec"
	"github.com/go-cram/gocram/block"
	"github.com/go-cram/gocram/codec"
	"github.com/go-cram/gocram/cramhdr"
	"github.com/go-cram/gocram/cramopts"
	"github.com/go-cram/gocram/refprovider"
)

// decodeSliceForTest mirrors cram.go's decodeSlice glue: split blocks
// into CORE/external, build a codec.Source, and decode.
func decodeSliceForTest(t *testing.T, header *cramhdr.CompressionHeader, shdr *Header, blocks []*block.Block, refs refprovider.Provider) []*bamrec.Record {
	t.Helper()
	var core *block.Block
	externals := make(map[int32]*block.Block)
	for _, b := range blocks {
		switch b.ContentType {
		case block.ContentCore:
			core = b
		case block.ContentExternal:
			externals[b.ContentID] = b
		}
	}
	if core == nil {
		t.Fatal("no CORE block in encoded slice")
	}
	bits, err := core.Bits()
	if err != nil {
		t.Fatal(err)
	}
	src := &codec.Source{
		Core: bits,
		External: func(contentID int32) (*block.Block, error) {
			return externals[contentID], nil
		},
	}
	dec := NewDecoder(header, shdr, cramopts.Default(), refs)
	recs, err := dec.DecodeRecords(src)
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	return dec.ToBAMRecords(recs)
}

func TestEncodeRecordsUnmappedRoundTrip(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	in := &bamrec.Record{
		RefID: -1,
		Pos:   0,
		Flag:  uint16(FlagUnmapped),
		Name:  "r1",
		Seq:   []byte("ACGT"),
		Qual:  []byte{30, 30, 30, 30},
		MapQ:  0,
	}

	enc := NewEncoder(header, cramopts.Default(), nil)
	shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{in})
	if err != nil {
		t.Fatalf("EncodeRecords: %v", err)
	}
	if shdr.RefSeqID != -1 {
		t.Errorf("shdr.RefSeqID = %d, want -1 for all-unmapped slice", shdr.RefSeqID)
	}

	out := decodeSliceForTest(t, header, shdr, blocks, nil)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	got := out[0]
	if got.Name != in.Name {
		t.Errorf("Name = %q, want %q", got.Name, in.Name)
	}
	if !bytes.Equal(got.Seq, in.Seq) {
		t.Errorf("Seq = %q, want %q", got.Seq, in.Seq)
	}
	if !bytes.Equal(got.Qual, in.Qual) {
		t.Errorf("Qual = %v, want %v", got.Qual, in.Qual)
	}
	if got.RefID != -1 {
		t.Errorf("RefID = %d, want -1", got.RefID)
	}
}

func TestEncodeRecordsMappedPlainMatchRoundTrip(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	refSeq := bytes.Repeat([]byte("ACGT"), 100) // 400 bases, plenty of padding
	refs := refprovider.NewInMemory(map[int32][]byte{0: refSeq})

	in := &bamrec.Record{
		RefID: 0,
		Pos:   0,
		Flag:  0,
		Name:  "r2",
		Seq:   []byte("ACGT"),
		Cigar: []bamrec.CigarOp{{Op: 'M', Length: 4}},
		MapQ:  40,
	}

	enc := NewEncoder(header, cramopts.Default(), refs)
	shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{in})
	if err != nil {
		t.Fatalf("EncodeRecords: %v", err)
	}
	if shdr.RefSeqID != 0 {
		t.Errorf("shdr.RefSeqID = %d, want 0", shdr.RefSeqID)
	}

	out := decodeSliceForTest(t, header, shdr, blocks, refs)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	got := out[0]
	if !bytes.Equal(got.Seq, in.Seq) {
		t.Errorf("Seq = %q, want %q", got.Seq, in.Seq)
	}
	if got.Pos != in.Pos {
		t.Errorf("Pos = %d, want %d", got.Pos, in.Pos)
	}
	if got.MapQ != in.MapQ {
		t.Errorf("MapQ = %d, want %d", got.MapQ, in.MapQ)
	}
	if len(got.Cigar) != 1 || got.Cigar[0].Op != 'M' || got.Cigar[0].Length != 4 {
		t.Errorf("Cigar = %+v, want single 4M", got.Cigar)
	}
	if refs.RefCount(0) != 0 {
		t.Errorf("ref refcount = %d after decode, want 0 (balanced acquire/release)", refs.RefCount(0))
	}
}

func TestEncodeRecordsMappedSubstitutionRoundTrip(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	refSeq := bytes.Repeat([]byte("A"), 400)
	refs := refprovider.NewInMemory(map[int32][]byte{0: refSeq})

	in := &bamrec.Record{
		RefID: 0,
		Pos:   0,
		Flag:  0,
		Name:  "r3",
		Seq:   []byte("ACAA"), // diverges from reference at offset 1
		Cigar: []bamrec.CigarOp{{Op: 'M', Length: 4}},
		MapQ:  30,
	}

	enc := NewEncoder(header, cramopts.Default(), refs)
	shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{in})
	if err != nil {
		t.Fatalf("EncodeRecords: %v", err)
	}

	out := decodeSliceForTest(t, header, shdr, blocks, refs)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	got := out[0]
	if !bytes.Equal(got.Seq, in.Seq) {
		t.Errorf("Seq = %q, want %q", got.Seq, in.Seq)
	}
	if len(got.Cigar) != 1 || got.Cigar[0].Op != 'M' || got.Cigar[0].Length != 4 {
		t.Errorf("Cigar = %+v, want single 4M (substitutions don't split the cigar)", got.Cigar)
	}
}

func TestEncodeRecordsMappedIndelRoundTrip(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	refSeq := bytes.Repeat([]byte("A"), 400)
	refs := refprovider.NewInMemory(map[int32][]byte{0: refSeq})

	// 2M (matches) 2I (insertion, no ref bases) 3M (matches) 2D
	// (deletion, no read bases) 2M (matches); read bases at M
	// positions must equal the all-A reference so no feature
	// collapses the cigar into a substitution instead.
	in := &bamrec.Record{
		RefID: 0,
		Pos:   0,
		Flag:  0,
		Name:  "r4",
		Seq:   []byte("AAGGAAAAA"),
		Cigar: []bamrec.CigarOp{
			{Op: 'M', Length: 2},
			{Op: 'I', Length: 2},
			{Op: 'M', Length: 3},
			{Op: 'D', Length: 2},
			{Op: 'M', Length: 2},
		},
		MapQ: 20,
	}

	enc := NewEncoder(header, cramopts.Default(), refs)
	shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{in})
	if err != nil {
		t.Fatalf("EncodeRecords: %v", err)
	}

	out := decodeSliceForTest(t, header, shdr, blocks, refs)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	got := out[0]
	if !bytes.Equal(got.Seq, in.Seq) {
		t.Errorf("Seq = %q, want %q", got.Seq, in.Seq)
	}
	if len(got.Cigar) != len(in.Cigar) {
		t.Fatalf("Cigar = %+v, want %+v", got.Cigar, in.Cigar)
	}
	for i, op := range in.Cigar {
		if got.Cigar[i] != op {
			t.Errorf("Cigar[%d] = %+v, want %+v", i, got.Cigar[i], op)
		}
	}
}

func TestEncodeRecordsMixedMappedUnmappedForcesMultiRef(t *testing.T) {
	header := cramhdr.DefaultCompressionHeader()
	refSeq := bytes.Repeat([]byte("ACGT"), 100)
	refs := refprovider.NewInMemory(map[int32][]byte{0: refSeq})

	mapped := &bamrec.Record{
		RefID: 0, Pos: 0, Name: "m1", Seq: []byte("ACGT"),
		Cigar: []bamrec.CigarOp{{Op: 'M', Length: 4}}, MapQ: 10,
	}
	unmapped := &bamrec.Record{
		RefID: -1, Flag: uint16(FlagUnmapped), Name: "u1", Seq: []byte("TTTT"),
	}

	enc := NewEncoder(header, cramopts.Default(), refs)
	shdr, blocks, err := enc.EncodeRecords([]*bamrec.Record{mapped, unmapped})
	if err != nil {
		t.Fatalf("EncodeRecords: %v", err)
	}
	if !shdr.MultiRef() {
		t.Fatal("expected MultiRef slice header when mixing mapped and unmapped records")
	}

	out := decodeSliceForTest(t, header, shdr, blocks, refs)
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].RefID != 0 {
		t.Errorf("mapped record RefID = %d, want 0", out[0].RefID)
	}
	if out[1].RefID != -1 {
		t.Errorf("unmapped record RefID = %d, want -1 (must survive multi-ref RI)", out[1].RefID)
	}
}
