package engine

import (
	"slices"

	"github.com/tidwall/btree"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/metrics"
)

// batchState is the scoped batch flag plus the queue of removed identities
// whose inverse references still need clearing.
type batchState struct {
	active  bool
	pending *btree.Set[ir.ID]
}

func newBatchState() batchState {
	return batchState{pending: new(btree.Set[ir.ID])}
}

// Batch enters batch mode. Until Unbatch, Remove skips the cascade that
// clears references to the removed entity and queues it instead.
func (d *Document) Batch() error {
	if d.batch.active {
		return illegalState("Batch", "batch mode is already active")
	}
	d.batch.active = true
	d.logger.Debug("batch begun")
	return nil
}

// Unbatch leaves batch mode and flushes the deferred cascade.
func (d *Document) Unbatch() error {
	if !d.batch.active {
		return illegalState("Unbatch", "batch mode is not active")
	}
	n := d.flushCascade()
	d.batch.active = false
	d.logger.Debug("batch ended", "fixups", n)
	return nil
}

// InBatch reports whether batch mode is active.
func (d *Document) InBatch() bool {
	return d.batch.active
}

// slotKey identifies one reference slot of one referrer.
type slotKey struct {
	from ir.ID
	slot int
}

// flushCascade clears every reference to the queued identities that are
// still absent. Identities are visited in ascending order and each
// (referrer, slot) is rewritten once, however many of its targets were
// removed. Each rewrite is a logged set op. It returns the number of rewrites.
func (d *Document) flushCascade() int {
	if d.batch.pending.Len() == 0 {
		return 0
	}

	removed := make(map[ir.ID]bool)
	var order []slotKey
	seen := make(map[slotKey]bool)

	d.batch.pending.Scan(func(id ir.ID) bool {
		if _, present := d.entities.Get(id); present {
			return true
		}
		removed[id] = true
		for _, e := range d.inverse.edges(id) {
			k := slotKey{from: e.From, slot: e.Slot}
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		return true
	})
	d.batch.pending = new(btree.Set[ir.ID])

	n := 0
	for _, k := range order {
		referrer, ok := d.entities.Get(k.from)
		if !ok {
			continue
		}
		cleared := stripRefs(referrer.values[k.slot], func(id ir.ID) bool { return removed[id] })
		d.setSlotLogged(referrer, k.slot, cleared)
		n++
	}

	metrics.CascadeFixups.WithLabelValues(metrics.CascadeBatched).Add(float64(n))
	return n
}

// stripRefs returns v with every reference matching drop removed: a single
// reference becomes Null and list entries are dropped.
func stripRefs(v ir.Value, drop func(ir.ID) bool) ir.Value {
	switch val := v.(type) {
	case ir.Ref:
		if drop(ir.ID(val)) {
			return ir.Null{}
		}
		return val
	case ir.RefList:
		return slices.DeleteFunc(slices.Clone(val), drop)
	default:
		return v
	}
}
