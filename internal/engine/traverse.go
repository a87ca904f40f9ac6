package engine

import (
	"github.com/roach88/stepdoc/internal/ir"
)

// Unbounded lifts the depth limit of Traverse.
const Unbounded = -1

// Traverse returns root followed by every entity reachable from it through
// forward references, breadth-first, up to maxLevels hops. Within a level the
// order follows slot order and then list order. Each entity appears once, so
// cyclic graphs terminate. References to absent entities, which only exist
// inside a batch, are skipped.
func (d *Document) Traverse(root *Entity, maxLevels int) ([]*Entity, error) {
	if err := d.owns("Traverse", root); err != nil {
		return nil, err
	}

	visited := map[ir.ID]bool{root.id: true}
	out := []*Entity{root}
	level := []*Entity{root}

	for depth := 0; len(level) > 0 && (maxLevels < 0 || depth < maxLevels); depth++ {
		var next []*Entity
		for _, e := range level {
			for _, v := range e.values {
				for _, id := range ir.Refs(v) {
					if visited[id] {
						continue
					}
					target, ok := d.entities.Get(id)
					if !ok {
						continue
					}
					visited[id] = true
					next = append(next, target)
				}
			}
		}
		out = append(out, next...)
		level = next
	}
	return out, nil
}

// Inverse returns the distinct entities referencing e in ascending identity order.
func (d *Document) Inverse(e *Entity) ([]*Entity, error) {
	if err := d.owns("Inverse", e); err != nil {
		return nil, err
	}
	ids := d.inverse.referrers(e.id)
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if ref, ok := d.entities.Get(id); ok {
			out = append(out, ref)
		}
	}
	return out, nil
}

// InverseEdges returns every (referrer, slot) pair referencing e, ordered by
// referrer then slot. A slot counts once however often its list repeats e.
func (d *Document) InverseEdges(e *Entity) []Edge {
	if e == nil || e.doc != d {
		return nil
	}
	return d.inverse.edges(e.id)
}

// TotalInverses returns the number of references to e, counting a list that
// holds e twice as two.
func (d *Document) TotalInverses(e *Entity) int {
	if e == nil || e.doc != d {
		return 0
	}
	return d.inverse.total(e.id)
}
