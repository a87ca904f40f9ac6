package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/metrics"
)

// Seed supplies initial attribute values or the identity to CreateEntity.
type Seed func(*seeding) error

// seeding is the entity under construction.
type seeding struct {
	d      *Document
	typ    string
	values []ir.Value
	id     ir.ID
}

// Args seeds attributes positionally in schema order. Supplying more values
// than the type has slots fails with CodeArity.
func Args(vals ...any) Seed {
	return func(s *seeding) error {
		if len(vals) > len(s.values) {
			return &Error{
				Code:    CodeArity,
				Op:      "CreateEntity",
				Type:    s.typ,
				Message: fmt.Sprintf("%d positional values for %d attributes", len(vals), len(s.values)),
			}
		}
		for i, raw := range vals {
			v, err := s.d.toValue("CreateEntity", raw)
			if err != nil {
				return err
			}
			s.values[i] = v
		}
		return nil
	}
}

// Attr seeds one attribute by name.
func Attr(name string, v any) Seed {
	return func(s *seeding) error {
		slot, ok := s.d.table.Slot(s.typ, name)
		if !ok {
			return schemaError("CreateEntity", s.typ, name, "unknown attribute")
		}
		val, err := s.d.toValue("CreateEntity", v)
		if err != nil {
			return err
		}
		s.values[slot] = val
		return nil
	}
}

// WithID requests an explicit identity. It must be higher than every
// identity the document has handed out, so identities are still never reused.
func WithID(id ir.ID) Seed {
	return func(s *seeding) error {
		if !id.Valid() {
			return &Error{Code: CodeSchema, Op: "CreateEntity", Type: s.typ, Message: fmt.Sprintf("invalid identity %d", int64(id))}
		}
		s.id = id
		return nil
	}
}

// CreateEntity creates an entity of typeName, registers it in every index and
// records its creation when a transaction is open.
//
// Unset attributes are Null. When a GUIDGenerator is configured and the type
// has a unique key left unset, a fresh GUID is assigned.
func (d *Document) CreateEntity(typeName string, seeds ...Seed) (*Entity, error) {
	typ, ok := d.table.Canonical(typeName)
	if !ok {
		return nil, schemaError("CreateEntity", typeName, "", "unknown entity type")
	}
	if decl, _ := d.table.Lookup(typ); decl.Abstract {
		return nil, schemaError("CreateEntity", typ, "", "abstract type cannot be instantiated")
	}

	s := &seeding{d: d, typ: typ, values: nullValues(d.table.Arity(typ))}
	for _, seed := range seeds {
		if err := seed(s); err != nil {
			return nil, err
		}
	}

	attrs := d.table.Attributes(typ)
	for slot, attr := range attrs {
		v, err := d.checkValue("CreateEntity", typ, attr, s.values[slot])
		if err != nil {
			return nil, err
		}
		s.values[slot] = v
	}

	if slot := d.table.UniqueSlot(typ); slot >= 0 {
		if ir.IsNull(s.values[slot]) && d.guidGen != nil {
			s.values[slot] = ir.String(d.guidGen.NewGUID())
		}
		if err := d.checkUnique("CreateEntity", typ, 0, s.values[slot]); err != nil {
			return nil, err
		}
	}

	id := s.id
	if id.Valid() {
		if !d.ids.Reserve(id) {
			return nil, &Error{
				Code:    CodeDuplicate,
				Op:      "CreateEntity",
				ID:      id,
				Type:    typ,
				Message: fmt.Sprintf("identity already allocated (high-water mark %s)", d.ids.Current()),
			}
		}
	} else {
		id = d.ids.Next()
	}

	e := &Entity{id: id, typ: typ, values: s.values, table: d.table}
	d.attach(e)
	d.record(&createOp{e: e, values: ir.CloneAll(e.values)})

	metrics.EntitiesCreated.WithLabelValues(typ).Inc()
	d.logger.Debug("entity created", "id", id, "type", typ)
	return e, nil
}

func nullValues(n int) []ir.Value {
	vals := make([]ir.Value, n)
	for i := range vals {
		vals[i] = ir.Null{}
	}
	return vals
}
