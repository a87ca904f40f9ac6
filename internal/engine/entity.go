package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// Entity is a handle to one typed record of a Document.
//
// Handles stay valid across undo and redo: a removal detaches the entity and
// undoing it re-attaches the same *Entity, so pointer equality with ByID holds
// afterwards. While detached, Document returns nil and Attached reports false.
type Entity struct {
	id     ir.ID
	typ    string
	values []ir.Value
	table  *schema.Table
	doc    *Document
}

// ID returns the entity's identity.
func (e *Entity) ID() ir.ID {
	return e.id
}

// Type returns the canonical type name.
func (e *Entity) Type() string {
	return e.typ
}

// Is reports whether the entity is an instance of typeName or one of its subtypes.
func (e *Entity) Is(typeName string) bool {
	return e.table.IsSubtypeOf(e.typ, typeName)
}

// Document returns the owning document, or nil while detached.
func (e *Entity) Document() *Document {
	return e.doc
}

// Attached reports whether the entity is currently held by a document.
func (e *Entity) Attached() bool {
	return e.doc != nil
}

// Values returns a copy of every slot value in schema order.
func (e *Entity) Values() []ir.Value {
	return ir.CloneAll(e.values)
}

// At returns the value in a slot.
func (e *Entity) At(slot int) (ir.Value, error) {
	if slot < 0 || slot >= len(e.values) {
		return nil, &Error{
			Code:    CodeSchema,
			Op:      "At",
			ID:      e.id,
			Type:    e.typ,
			Message: fmt.Sprintf("slot %d out of range [0,%d)", slot, len(e.values)),
		}
	}
	return ir.Clone(e.values[slot]), nil
}

// Get returns the value of a named attribute.
func (e *Entity) Get(name string) (ir.Value, error) {
	slot, ok := e.table.Slot(e.typ, name)
	if !ok {
		return nil, schemaError("Get", e.typ, name, "unknown attribute")
	}
	return ir.Clone(e.values[slot]), nil
}

// Ref resolves a single-reference attribute. It returns nil, nil when the
// attribute is unset.
func (e *Entity) Ref(name string) (*Entity, error) {
	v, err := e.Get(name)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case ir.Null:
		return nil, nil
	case ir.Ref:
		if e.doc == nil {
			return nil, notFound("Ref", e.id, "entity is detached")
		}
		return e.doc.ByID(ir.ID(val))
	default:
		return nil, schemaError("Ref", e.typ, name, "attribute holds %s, not a reference", ir.KindName(v))
	}
}

// Refs resolves a reference-list attribute in list order.
func (e *Entity) Refs(name string) ([]*Entity, error) {
	v, err := e.Get(name)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case ir.Null:
		return nil, nil
	case ir.RefList:
		if e.doc == nil {
			return nil, notFound("Refs", e.id, "entity is detached")
		}
		out := make([]*Entity, 0, len(val))
		for _, id := range val {
			target, err := e.doc.ByID(id)
			if err != nil {
				return nil, err
			}
			out = append(out, target)
		}
		return out, nil
	default:
		return nil, schemaError("Refs", e.typ, name, "attribute holds %s, not a reference list", ir.KindName(v))
	}
}

// Set assigns a named attribute through the owning document.
func (e *Entity) Set(name string, v any) error {
	if e.doc == nil {
		return notFound("Set", e.id, "entity is detached")
	}
	return e.doc.SetAttribute(e, name, v)
}

// String renders the entity as a STEP instance line, e.g. #1=IfcWall('id',$).
func (e *Entity) String() string {
	agg := make(ir.Aggregate, len(e.values))
	copy(agg, e.values)
	return fmt.Sprintf("%s=%s%s", e.id, e.typ, ir.Format(agg))
}
