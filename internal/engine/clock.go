package engine

import (
	"sync/atomic"

	"github.com/roach88/stepdoc/internal/ir"
)

// Allocator hands out entity identities.
//
// Identities are strictly increasing and never reused, not even after the
// entity they were given to is removed. Undo and redo re-attach the original
// entity and never draw from the allocator.
//
// Thread-safety: Allocator is safe for concurrent use (atomic operations),
// although a Document only ever calls it from its single writer.
type Allocator struct {
	seq atomic.Int64
}

// NewAllocator creates an allocator whose first identity is #1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorAt creates an allocator that resumes after high.
// Used when loading a document whose identities are already assigned.
func NewAllocatorAt(high ir.ID) *Allocator {
	a := &Allocator{}
	a.seq.Store(int64(high))
	return a
}

// Next returns the next identity and advances the allocator.
func (a *Allocator) Next() ir.ID {
	return ir.ID(a.seq.Add(1))
}

// Current returns the highest identity handed out so far.
func (a *Allocator) Current() ir.ID {
	return ir.ID(a.seq.Load())
}

// Reserve moves the high-water mark to id if it is ahead of the allocator.
// It reports false when id was already passed, so the caller can reject it.
func (a *Allocator) Reserve(id ir.ID) bool {
	for {
		cur := a.seq.Load()
		if int64(id) <= cur {
			return false
		}
		if a.seq.CompareAndSwap(cur, int64(id)) {
			return true
		}
	}
}
