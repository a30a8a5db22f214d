package refprovider_test

import (
	"testing"

	"github.com/go-cram/gocram/refprovider"
)

func TestAcquireRelease(t *testing.T) {
	p := refprovider.NewInMemory(map[int32][]byte{
		0: []byte("ACGTACGTACGT"),
	})
	got, err := p.Acquire(0, 2, 8)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "GTACGT" {
		t.Errorf("Acquire = %q", got)
	}
	if p.RefCount(0) != 1 {
		t.Errorf("refcount = %d, want 1", p.RefCount(0))
	}
	p.Release(0)
	if p.RefCount(0) != 0 {
		t.Errorf("refcount after release = %d, want 0", p.RefCount(0))
	}
}

func TestAcquireUnknownReference(t *testing.T) {
	p := refprovider.NewInMemory(map[int32][]byte{})
	if _, err := p.Acquire(5, 0, 10); err == nil {
		t.Fatal("expected error for unknown reference id")
	}
}

func TestAcquireOutOfRange(t *testing.T) {
	p := refprovider.NewInMemory(map[int32][]byte{0: []byte("ACGT")})
	if _, err := p.Acquire(0, 0, 100); err == nil {
		t.Fatal("expected error for out-of-range request")
	}
}
