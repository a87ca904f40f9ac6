package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// Record is one entity as read from an external source, with its identity
// already assigned.
type Record struct {
	ID     ir.ID
	Type   string
	Values []ir.Value
}

// Load builds a document from records in one pass.
//
// Types, arity and value kinds are checked per record. References are only
// required to resolve once every record is in, so forward references are
// fine. The indices are built once at the end, the allocator resumes past the
// highest identity and nothing is logged.
func Load(table *schema.Table, records []Record, opts ...Option) (*Document, error) {
	d := New(table, opts...)

	var high ir.ID
	for _, r := range records {
		if !r.ID.Valid() {
			return nil, &Error{Code: CodeSchema, Op: "Load", Type: r.Type, Message: fmt.Sprintf("invalid identity %d", int64(r.ID))}
		}
		if _, dup := d.entities.Get(r.ID); dup {
			return nil, &Error{Code: CodeDuplicate, Op: "Load", ID: r.ID, Type: r.Type, Message: "identity appears twice"}
		}

		typ, ok := table.Canonical(r.Type)
		if !ok {
			return nil, &Error{Code: CodeSchema, Op: "Load", ID: r.ID, Type: r.Type, Message: "unknown entity type"}
		}
		if decl, _ := table.Lookup(typ); decl.Abstract {
			return nil, &Error{Code: CodeSchema, Op: "Load", ID: r.ID, Type: typ, Message: "abstract type cannot be instantiated"}
		}
		attrs := table.Attributes(typ)
		if len(r.Values) > len(attrs) {
			return nil, &Error{
				Code:    CodeArity,
				Op:      "Load",
				ID:      r.ID,
				Type:    typ,
				Message: fmt.Sprintf("%d values for %d attributes", len(r.Values), len(attrs)),
			}
		}

		values := nullValues(len(attrs))
		for slot, v := range r.Values {
			coerced, ok := attrs[slot].Kind.Coerce(v)
			if !ok {
				return nil, &Error{
					Code:    CodeSchema,
					Op:      "Load",
					ID:      r.ID,
					Type:    typ,
					Attr:    attrs[slot].Name,
					Message: fmt.Sprintf("%s value does not fit %s attribute", ir.KindName(v), attrs[slot].Kind),
				}
			}
			values[slot] = ir.Clone(coerced)
		}

		d.entities.Set(r.ID, &Entity{id: r.ID, typ: typ, values: values, table: table})
		high = max(high, r.ID)
	}

	for _, e := range d.Entities() {
		for slot, v := range e.values {
			attr, _ := table.AttributeAt(e.typ, slot)
			for _, id := range ir.Refs(v) {
				target, ok := d.entities.Get(id)
				if !ok {
					return nil, &Error{
						Code:    CodeNotFound,
						Op:      "Load",
						ID:      e.id,
						Type:    e.typ,
						Attr:    attr.Name,
						Message: fmt.Sprintf("reference to missing %s", id),
					}
				}
				if attr.Target != "" && !target.Is(attr.Target) {
					return nil, &Error{
						Code:    CodeSchema,
						Op:      "Load",
						ID:      e.id,
						Type:    e.typ,
						Attr:    attr.Name,
						Message: fmt.Sprintf("%s is %s, expected %s", id, target.typ, attr.Target),
					}
				}
			}
		}
	}

	d.ids = NewAllocatorAt(high)
	d.rebuildIndexes()

	if err := d.checkGUIDs(); err != nil {
		return nil, err
	}
	d.logger.Debug("document loaded", "entities", d.entities.Len(), "max_id", high)
	return d, nil
}

// checkGUIDs verifies that no two live entities share a unique key.
func (d *Document) checkGUIDs() error {
	n := 0
	for _, e := range d.Entities() {
		if slot := d.table.UniqueSlot(e.typ); slot >= 0 {
			if _, ok := e.values[slot].(ir.String); ok {
				n++
			}
		}
	}
	if n == len(d.guids) {
		return nil
	}
	seen := make(map[string]ir.ID, n)
	for _, e := range d.Entities() {
		slot := d.table.UniqueSlot(e.typ)
		if slot < 0 {
			continue
		}
		guid, ok := e.values[slot].(ir.String)
		if !ok {
			continue
		}
		if owner, dup := seen[string(guid)]; dup {
			return &Error{
				Code:    CodeDuplicate,
				Op:      "Load",
				ID:      e.id,
				Type:    e.typ,
				Message: fmt.Sprintf("unique key %q is also used by %s", string(guid), owner),
			}
		}
		seen[string(guid)] = e.id
	}
	return nil
}
