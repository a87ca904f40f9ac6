package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
)

// ByID returns the live entity with the given identity.
func (d *Document) ByID(id ir.ID) (*Entity, error) {
	e, ok := d.entities.Get(id)
	if !ok {
		return nil, notFound("ByID", id, "no entity with identity %s", id)
	}
	return e, nil
}

// ByGUID returns the live entity whose unique key equals guid.
func (d *Document) ByGUID(guid string) (*Entity, error) {
	id, ok := d.guids[guid]
	if !ok {
		return nil, notFound("ByGUID", 0, "no entity with unique key %q", guid)
	}
	return d.ByID(id)
}

// Lookup dispatches on the key: an identity (ir.ID, int, int64) goes to ByID
// and a string goes to ByGUID.
func (d *Document) Lookup(key any) (*Entity, error) {
	switch k := key.(type) {
	case ir.ID:
		return d.ByID(k)
	case int:
		return d.ByID(ir.ID(k))
	case int64:
		return d.ByID(ir.ID(k))
	case string:
		return d.ByGUID(k)
	default:
		return nil, &Error{Code: CodeSchema, Op: "Lookup", Message: fmt.Sprintf("unsupported key type %T", key)}
	}
}

// ByType returns the instances of typeName in ascending identity order.
// With includeSubtypes, instances of every subtype are merged in.
func (d *Document) ByType(typeName string, includeSubtypes bool) ([]*Entity, error) {
	typ, ok := d.table.Canonical(typeName)
	if !ok {
		return nil, schemaError("ByType", typeName, "", "unknown entity type")
	}

	names := []string{typ}
	if includeSubtypes {
		names = append(names, d.table.Subtypes(typ)...)
	}

	ids := d.types.ids(names...)
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := d.entities.Get(id); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// CountByType returns the number of instances per exact type, omitting types
// with none.
func (d *Document) CountByType() map[string]int {
	out := make(map[string]int, len(d.types))
	for name := range d.types {
		out[name] = d.types.count(name)
	}
	return out
}
