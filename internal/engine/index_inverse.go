package engine

import (
	"slices"

	"github.com/tidwall/btree"

	"github.com/roach88/stepdoc/internal/ir"
)

// Edge is one inverse reference: entity From holds the target in slot Slot.
type Edge struct {
	From ir.ID
	Slot int
}

// edgeCount is an Edge with its multiplicity. A RefList that holds the same
// target twice contributes two to the count of one edge.
type edgeCount struct {
	Edge
	n int
}

func edgeLess(a, b edgeCount) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.Slot < b.Slot
}

// inverseIndex maps a target identity to the counted set of edges pointing
// at it. Targets need not be attached: inside a batch, edges to removed
// entities stay until the deferred cascade rewrites the referrers.
type inverseIndex map[ir.ID]*btree.BTreeG[edgeCount]

func newInverseIndex() inverseIndex {
	return make(inverseIndex)
}

func (ix inverseIndex) add(target ir.ID, e Edge) {
	tree, ok := ix[target]
	if !ok {
		tree = btree.NewBTreeGOptions(edgeLess, btree.Options{NoLocks: true})
		ix[target] = tree
	}
	cur, _ := tree.Get(edgeCount{Edge: e})
	tree.Set(edgeCount{Edge: e, n: cur.n + 1})
}

func (ix inverseIndex) remove(target ir.ID, e Edge) {
	tree, ok := ix[target]
	if !ok {
		return
	}
	cur, found := tree.Get(edgeCount{Edge: e})
	if !found {
		return
	}
	if cur.n > 1 {
		tree.Set(edgeCount{Edge: e, n: cur.n - 1})
		return
	}
	tree.Delete(cur)
	if tree.Len() == 0 {
		delete(ix, target)
	}
}

// edges returns the distinct edges to target ordered by (From, Slot).
func (ix inverseIndex) edges(target ir.ID) []Edge {
	tree, ok := ix[target]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, tree.Len())
	tree.Scan(func(ec edgeCount) bool {
		out = append(out, ec.Edge)
		return true
	})
	return out
}

// total returns the number of references to target, counting multiplicity.
func (ix inverseIndex) total(target ir.ID) int {
	tree, ok := ix[target]
	if !ok {
		return 0
	}
	n := 0
	tree.Scan(func(ec edgeCount) bool {
		n += ec.n
		return true
	})
	return n
}

// referrers returns the distinct referrer identities of target in ascending order.
func (ix inverseIndex) referrers(target ir.ID) []ir.ID {
	var out []ir.ID
	for _, e := range ix.edges(target) {
		if len(out) == 0 || out[len(out)-1] != e.From {
			out = append(out, e.From)
		}
	}
	return out
}

// snapshot returns every (target, edge, count) triple in canonical order.
func (ix inverseIndex) snapshot() []any {
	targets := make([]ir.ID, 0, len(ix))
	for t := range ix {
		targets = append(targets, t)
	}
	slices.Sort(targets)

	var out []any
	for _, t := range targets {
		ix[t].Scan(func(ec edgeCount) bool {
			out = append(out, []any{int64(t), int64(ec.From), ec.Slot, ec.n})
			return true
		})
	}
	return out
}
