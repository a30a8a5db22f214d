package block_test

import (
	"bytes"
	"testing"

	"github.com/go-cram/gocram/block"
)

func TestBlockRawRoundTrip(t *testing.T) {
	data := []byte("ACGTACGTACGT")
	b := block.NewRawBlock(block.ContentExternal, 3, data)

	buf := new(bytes.Buffer)
	if _, err := b.WriteTo(buf, true); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := block.ReadBlock(buf, true)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if err := got.Uncompress(); err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	out, err := got.ReadBytes(len(data))
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip = %q, want %q", out, data)
	}
	if got.ContentID != 3 || got.ContentType != block.ContentExternal {
		t.Errorf("header mismatch: id=%d type=%v", got.ContentID, got.ContentType)
	}
}

func compressRoundTrip(t *testing.T, method block.Method, data []byte) {
	t.Helper()
	b := block.NewRawBlock(block.ContentExternal, 1, append([]byte(nil), data...))
	if err := b.Compress(method); err != nil {
		t.Fatalf("Compress(%v): %v", method, err)
	}
	if err := b.Uncompress(); err != nil {
		t.Fatalf("Uncompress(%v): %v", method, err)
	}
	got, err := b.ReadBytes(len(data))
	if err != nil {
		t.Fatalf("ReadBytes(%v): %v", method, err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("%v round trip mismatch: got %q, want %q", method, got, data)
	}
}

func TestMethodRoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("ACGTACGTNNNNACGTTTTTACGGGGGG"), 50)
	methods := []block.Method{
		block.MethodGzip,
		block.MethodBzip2,
		block.MethodLZMA,
		block.MethodRANS,
		block.MethodRANS4x16,
	}
	for _, m := range methods {
		compressRoundTrip(t, m, payload)
	}
}

func TestTok3RoundTrip(t *testing.T) {
	names := bytes.Join([][]byte{
		[]byte("read.0001"), []byte("read.0002"), []byte("read.0003"), []byte("read.0004"),
	}, []byte{0})
	names = append(names, 0)
	compressRoundTrip(t, block.MethodTok3, names)
}

func TestUnknownMethodRejected(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.WriteByte(0x7f) // out of the closed method set
	buf.WriteByte(byte(block.ContentExternal))
	buf.Write([]byte{0, 0, 0})
	if _, err := block.ReadBlock(buf, false); err == nil {
		t.Fatal("expected error for unknown compression method")
	}
}
