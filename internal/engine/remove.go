package engine

import (
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/metrics"
)

// Remove deletes e from the document.
//
// Outside batch mode every reference to e is cleared first: a single
// reference becomes Null and list entries equal to e are dropped. Each
// cleared slot is logged as its own set op ahead of the removal, so one undo
// restores both the entity and the references. Inside batch mode the clearing
// is deferred to Unbatch and the references dangle until then.
func (d *Document) Remove(e *Entity) error {
	if err := d.owns("Remove", e); err != nil {
		return err
	}

	if d.batch.active {
		d.batch.pending.Insert(e.id)
	} else {
		n := d.clearReferencesTo(e.id)
		metrics.CascadeFixups.WithLabelValues(metrics.CascadeImmediate).Add(float64(n))
	}

	values := ir.CloneAll(e.values)
	d.detach(e)
	d.record(&removeOp{e: e, values: values})

	metrics.EntitiesRemoved.WithLabelValues(e.typ).Inc()
	d.logger.Debug("entity removed",
		"id", e.id,
		"type", e.typ,
		"batched", d.batch.active,
	)
	return nil
}

// clearReferencesTo rewrites every slot that references id and returns the
// number of rewrites.
func (d *Document) clearReferencesTo(id ir.ID) int {
	edges := d.inverse.edges(id)
	drop := func(ref ir.ID) bool { return ref == id }
	for _, edge := range edges {
		referrer, ok := d.entities.Get(edge.From)
		if !ok {
			continue
		}
		d.setSlotLogged(referrer, edge.Slot, stripRefs(referrer.values[edge.Slot], drop))
	}
	return len(edges)
}
