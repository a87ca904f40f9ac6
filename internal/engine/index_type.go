package engine

import (
	"github.com/tidwall/btree"

	"github.com/roach88/stepdoc/internal/ir"
)

// typeIndex keeps one ordered identity set per exact canonical type name.
// Subtype queries union the sets of the schema's subtypes; nothing is stored
// under a supertype.
type typeIndex map[string]*btree.Set[ir.ID]

func newTypeIndex() typeIndex {
	return make(typeIndex)
}

func (ix typeIndex) add(typeName string, id ir.ID) {
	set, ok := ix[typeName]
	if !ok {
		set = new(btree.Set[ir.ID])
		ix[typeName] = set
	}
	set.Insert(id)
}

func (ix typeIndex) remove(typeName string, id ir.ID) {
	set, ok := ix[typeName]
	if !ok {
		return
	}
	set.Delete(id)
	if set.Len() == 0 {
		delete(ix, typeName)
	}
}

// ids returns the identities of the given exact types merged in ascending order.
func (ix typeIndex) ids(typeNames ...string) []ir.ID {
	merged := new(btree.Set[ir.ID])
	for _, name := range typeNames {
		set, ok := ix[name]
		if !ok {
			continue
		}
		set.Scan(func(id ir.ID) bool {
			merged.Insert(id)
			return true
		})
	}
	out := make([]ir.ID, 0, merged.Len())
	merged.Scan(func(id ir.ID) bool {
		out = append(out, id)
		return true
	})
	return out
}

// count returns the number of instances of exactly typeName.
func (ix typeIndex) count(typeName string) int {
	if set, ok := ix[typeName]; ok {
		return set.Len()
	}
	return 0
}
