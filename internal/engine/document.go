package engine

import (
	"log/slog"

	"github.com/tidwall/btree"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// DefaultHistorySize is the default number of committed transactions kept
// for undo.
const DefaultHistorySize = 64

// Document is an in-memory store of schema-typed entities.
//
// It owns the entities, the identity allocator, the type and inverse
// indices, the transaction log and the batch state. Every mutation updates
// the indices synchronously, except for removal cascades inside a batch,
// which are deferred until Unbatch.
//
// Thread-safety: a Document is single-writer and does no internal locking.
// Callers that share one across goroutines must serialize every call.
type Document struct {
	table *schema.Table
	ids   *Allocator

	entities btree.Map[ir.ID, *Entity]
	types    typeIndex
	inverse  inverseIndex
	guids    map[string]ir.ID

	log   txLog
	batch batchState

	guidGen GUIDGenerator
	logger  *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithHistorySize sets how many committed transactions are kept for undo.
//
// Default: 64 (DefaultHistorySize). Negative values are ignored.
func WithHistorySize(n int) Option {
	return func(d *Document) {
		if n >= 0 {
			d.log.size = n
		}
	}
}

// WithLogger sets the logger used for mutation and transaction events.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithGUIDGenerator makes CreateEntity fill an unset unique-key attribute
// with a generated value. Off by default.
func WithGUIDGenerator(g GUIDGenerator) Option {
	return func(d *Document) {
		d.guidGen = g
	}
}

// withAllocator replaces the identity allocator. Used by bulk loaders that
// assign identities themselves.
func withAllocator(a *Allocator) Option {
	return func(d *Document) {
		d.ids = a
	}
}

// New creates an empty document bound to table.
//
// The table is held for the lifetime of the document; it is never looked up
// from global state.
func New(table *schema.Table, opts ...Option) *Document {
	d := &Document{
		table:   table,
		ids:     NewAllocator(),
		types:   newTypeIndex(),
		inverse: newInverseIndex(),
		guids:   make(map[string]ir.ID),
		log:     txLog{size: DefaultHistorySize},
		batch:   newBatchState(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Schema returns the table the document is bound to.
func (d *Document) Schema() *schema.Table {
	return d.table
}

// Len returns the number of entities in the document.
func (d *Document) Len() int {
	return d.entities.Len()
}

// Entities returns every entity in ascending identity order.
func (d *Document) Entities() []*Entity {
	out := make([]*Entity, 0, d.entities.Len())
	d.entities.Scan(func(_ ir.ID, e *Entity) bool {
		out = append(out, e)
		return true
	})
	return out
}

// MaxID returns the highest identity handed out by the document so far,
// including identities of entities that have since been removed.
func (d *Document) MaxID() ir.ID {
	return d.ids.Current()
}

// attach registers e and its forward references in every index.
// It performs no validation and records nothing.
func (d *Document) attach(e *Entity) {
	e.doc = d
	d.entities.Set(e.id, e)
	d.types.add(e.typ, e.id)

	for slot, v := range e.values {
		for _, target := range ir.Refs(v) {
			d.inverse.add(target, Edge{From: e.id, Slot: slot})
		}
	}

	if slot := d.table.UniqueSlot(e.typ); slot >= 0 {
		if guid, ok := e.values[slot].(ir.String); ok {
			d.guids[string(guid)] = e.id
		}
	}
}

// detach removes e and its forward references from every index.
// References other entities hold to e are left in place.
func (d *Document) detach(e *Entity) {
	d.entities.Delete(e.id)
	d.types.remove(e.typ, e.id)

	for slot, v := range e.values {
		for _, target := range ir.Refs(v) {
			d.inverse.remove(target, Edge{From: e.id, Slot: slot})
		}
	}

	if slot := d.table.UniqueSlot(e.typ); slot >= 0 {
		if guid, ok := e.values[slot].(ir.String); ok && d.guids[string(guid)] == e.id {
			delete(d.guids, string(guid))
		}
	}

	e.doc = nil
}

// writeSlot replaces one attribute value and keeps the indices in step.
// It performs no validation and records nothing.
func (d *Document) writeSlot(e *Entity, slot int, v ir.Value) {
	old := e.values[slot]
	e.values[slot] = v

	if e.doc != d {
		return
	}

	for _, target := range ir.Refs(old) {
		d.inverse.remove(target, Edge{From: e.id, Slot: slot})
	}
	for _, target := range ir.Refs(v) {
		d.inverse.add(target, Edge{From: e.id, Slot: slot})
	}

	if d.table.UniqueSlot(e.typ) == slot {
		if guid, ok := old.(ir.String); ok && d.guids[string(guid)] == e.id {
			delete(d.guids, string(guid))
		}
		if guid, ok := v.(ir.String); ok {
			d.guids[string(guid)] = e.id
		}
	}
}

// rebuildIndexes recomputes the type, inverse and GUID indices from the
// entity map. Only bulk loading uses it; mutations maintain the indices
// incrementally.
func (d *Document) rebuildIndexes() {
	d.types = newTypeIndex()
	d.inverse = newInverseIndex()
	d.guids = make(map[string]ir.ID)

	for _, e := range d.Entities() {
		d.attach(e)
	}
}
