package engine

import (
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/metrics"
)

// importPlan is one foreign entity scheduled for Add.
type importPlan struct {
	src    *Entity
	typ    string
	local  *Entity // set when the unique key matched a local entity
	id     ir.ID
	values []ir.Value
}

// Add imports e, and everything it reaches through forward references, from
// another document.
//
// An entity of this document is returned unchanged. A foreign entity whose
// unique key is already present here maps to the local entity and its own
// references are not followed. Every other foreign entity is copied with a
// fresh identity, the root first and the rest in breadth-first order, with
// types and attributes resolved by name in this document's schema. One create
// op per copied entity is logged. The returned entity is the local
// counterpart of e.
func (d *Document) Add(e *Entity) (*Entity, error) {
	if e == nil {
		return nil, notFound("Add", 0, "nil entity")
	}
	if e.doc == d {
		return e, nil
	}
	if e.doc == nil {
		return nil, notFound("Add", e.id, "entity is detached")
	}

	plans, byForeign, err := d.planImport(e)
	if err != nil {
		return nil, err
	}
	if err := d.bindImport(plans, byForeign); err != nil {
		return nil, err
	}

	created := 0
	for _, p := range plans {
		if p.local != nil {
			continue
		}
		ne := &Entity{id: p.id, typ: p.typ, values: p.values, table: d.table}
		d.attach(ne)
		d.record(&createOp{e: ne, values: ir.CloneAll(ne.values)})
		metrics.EntitiesCreated.WithLabelValues(ne.typ).Inc()
		p.local = ne
		created++
	}

	d.logger.Debug("entities added",
		"root", e.id,
		"type", e.typ,
		"created", created,
		"visited", len(plans),
	)
	return byForeign[e.id].local, nil
}

// planImport walks the foreign graph breadth-first from root and resolves the
// local type of every entity. It does not touch the document.
func (d *Document) planImport(root *Entity) ([]*importPlan, map[ir.ID]*importPlan, error) {
	src := root.doc
	byForeign := make(map[ir.ID]*importPlan)
	var plans []*importPlan

	visit := func(fe *Entity) (*importPlan, error) {
		if p, ok := byForeign[fe.id]; ok {
			return p, nil
		}
		typ, ok := d.table.Canonical(fe.typ)
		if !ok {
			return nil, schemaError("Add", fe.typ, "", "type is not in schema %s", d.table.Name())
		}
		if decl, _ := d.table.Lookup(typ); decl.Abstract {
			return nil, schemaError("Add", typ, "", "abstract type cannot be instantiated")
		}
		p := &importPlan{src: fe, typ: typ}
		if slot := fe.table.UniqueSlot(fe.typ); slot >= 0 {
			if guid, ok := fe.values[slot].(ir.String); ok {
				if id, taken := d.guids[string(guid)]; taken {
					p.local, _ = d.entities.Get(id)
				}
			}
		}
		byForeign[fe.id] = p
		plans = append(plans, p)
		return p, nil
	}

	if _, err := visit(root); err != nil {
		return nil, nil, err
	}
	for i := 0; i < len(plans); i++ {
		p := plans[i]
		if p.local != nil {
			continue
		}
		for _, v := range p.src.values {
			for _, ref := range ir.Refs(v) {
				target, ok := src.entities.Get(ref)
				if !ok {
					return nil, nil, notFound("Add", ref, "foreign entity %s references missing %s", p.src.id, ref)
				}
				if _, err := visit(target); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return plans, byForeign, nil
}

// bindImport maps foreign attribute values onto the local slots of every new
// entity, rewriting references to local identities, and assigns identities.
func (d *Document) bindImport(plans []*importPlan, byForeign map[ir.ID]*importPlan) error {
	// Identities continue from the high-water mark but are only reserved once
	// every value has been checked.
	next := d.ids.Current()
	newTypes := make(map[ir.ID]string)
	for _, p := range plans {
		if p.local == nil {
			next++
			p.id = next
			newTypes[next] = p.typ
		}
	}

	localID := func(foreign ir.ID) ir.ID {
		p := byForeign[foreign]
		if p.local != nil {
			return p.local.id
		}
		return p.id
	}
	localType := func(id ir.ID) string {
		if typ, ok := newTypes[id]; ok {
			return typ
		}
		if e, ok := d.entities.Get(id); ok {
			return e.typ
		}
		return ""
	}

	for _, p := range plans {
		if p.local != nil {
			continue
		}
		attrs := d.table.Attributes(p.typ)
		p.values = nullValues(len(attrs))

		for slot, fv := range p.src.values {
			if ir.IsNull(fv) {
				continue
			}
			fattr, _ := p.src.table.AttributeAt(p.src.typ, slot)
			lslot, ok := d.table.Slot(p.typ, fattr.Name)
			if !ok {
				return schemaError("Add", p.typ, fattr.Name, "attribute is not in schema %s", d.table.Name())
			}
			attr := attrs[lslot]

			v, ok := attr.Kind.Coerce(rewriteRefs(fv, localID))
			if !ok {
				return schemaError("Add", p.typ, attr.Name, "%s value does not fit %s attribute", ir.KindName(fv), attr.Kind)
			}
			if attr.Target != "" {
				for _, id := range ir.Refs(v) {
					if typ := localType(id); !d.table.IsSubtypeOf(typ, attr.Target) {
						return schemaError("Add", p.typ, attr.Name, "%s is %s, expected %s", id, typ, attr.Target)
					}
				}
			}
			p.values[lslot] = v
		}
	}

	if len(newTypes) > 0 {
		d.ids.Reserve(next)
	}
	return nil
}

// rewriteRefs returns a copy of v with every identity passed through mapID.
func rewriteRefs(v ir.Value, mapID func(ir.ID) ir.ID) ir.Value {
	switch val := v.(type) {
	case ir.Ref:
		return ir.Ref(mapID(ir.ID(val)))
	case ir.RefList:
		out := make(ir.RefList, len(val))
		for i, id := range val {
			out[i] = mapID(id)
		}
		return out
	default:
		return ir.Clone(v)
	}
}
