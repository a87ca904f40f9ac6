package testutil

import (
	"fmt"
	"sync"
)

// FixedGUIDGenerator returns predetermined GUIDs in order.
//
// It satisfies engine.GUIDGenerator and panics once every GUID has been
// handed out, so a test that creates more entities than expected fails fast.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGUIDGenerator struct {
	mu    sync.Mutex
	guids []string
	idx   int
}

// NewFixedGUIDGenerator creates a generator that returns guids in order.
func NewFixedGUIDGenerator(guids ...string) *FixedGUIDGenerator {
	return &FixedGUIDGenerator{guids: guids}
}

// NewGUID returns the next predetermined GUID.
func (g *FixedGUIDGenerator) NewGUID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.guids) {
		panic("FixedGUIDGenerator: all guids exhausted")
	}
	guid := g.guids[g.idx]
	g.idx++
	return guid
}

// SequenceGUIDGenerator produces "<prefix>0001", "<prefix>0002", ... without end.
//
// Used by the harness where the number of generated GUIDs is not known up front
// but golden output must stay byte-identical between runs.
type SequenceGUIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGUIDGenerator creates a sequence generator. An empty prefix
// defaults to "guid-".
func NewSequenceGUIDGenerator(prefix string) *SequenceGUIDGenerator {
	if prefix == "" {
		prefix = "guid-"
	}
	return &SequenceGUIDGenerator{prefix: prefix}
}

// NewGUID returns the next GUID in the sequence.
func (g *SequenceGUIDGenerator) NewGUID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceGUIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
