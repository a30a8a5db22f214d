// Package refprovider supplies reference-sequence bases on demand,
// refcounted so a worker pool decoding several slices concurrently can
// share one underlying sequence store per spec.md §5's resource model.
package refprovider

import (
	"sync"

	"github.com/pkg/errors"
)

// Provider hands out reference bases for a region, refcounted per
// sequence id so a caller can release them when a decode job finishes.
type Provider interface {
	// Acquire increments refID's refcount and returns the bases for
	// [start, end). The returned slice must not be mutated by the
	// caller; it may be shared across concurrent acquirers.
	Acquire(refID int32, start, end int64) ([]byte, error)
	// Release decrements refID's refcount.
	Release(refID int32)
}

// InMemory is a Provider backed by fully-loaded in-memory sequences,
// keyed by reference sequence id. It's the concrete implementation used
// by tests and by callers that have already loaded a FASTA/index into
// memory; callers streaming a reference from disk implement their own
// Provider against the same interface.
type InMemory struct {
	mu       sync.Mutex
	seqs     map[int32][]byte
	refcount map[int32]int
}

// NewInMemory builds a Provider over already-loaded sequences.
func NewInMemory(seqs map[int32][]byte) *InMemory {
	return &InMemory{
		seqs:     seqs,
		refcount: make(map[int32]int),
	}
}

func (p *InMemory) Acquire(refID int32, start, end int64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seq, ok := p.seqs[refID]
	if !ok {
		return nil, errors.Errorf("refprovider: unknown reference id %d", refID)
	}
	if start < 0 || end > int64(len(seq)) || start > end {
		return nil, errors.Errorf("refprovider: range [%d,%d) out of bounds for reference %d (len %d)", start, end, refID, len(seq))
	}
	p.refcount[refID]++
	return seq[start:end], nil
}

func (p *InMemory) Release(refID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refcount[refID] > 0 {
		p.refcount[refID]--
	}
}

// RefCount reports the current refcount for refID, exposed for tests
// asserting acquire/release balance.
func (p *InMemory) RefCount(refID int32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refcount[refID]
}
