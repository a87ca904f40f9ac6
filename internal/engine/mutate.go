package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/metrics"
)

// SetAttribute assigns a named attribute of e.
//
// The value is checked against the attribute kind, every reference must point
// at an attached entity, and a unique key must not collide with another
// entity's. On success the inverse index is updated and, if a transaction is
// open, the previous value is recorded for undo.
func (d *Document) SetAttribute(e *Entity, name string, v any) error {
	if err := d.owns("SetAttribute", e); err != nil {
		return err
	}
	slot, ok := d.table.Slot(e.typ, name)
	if !ok {
		return schemaError("SetAttribute", e.typ, name, "unknown attribute")
	}
	return d.setAttribute("SetAttribute", e, slot, v)
}

// SetAttributeAt assigns the attribute in a slot of e.
func (d *Document) SetAttributeAt(e *Entity, slot int, v any) error {
	if err := d.owns("SetAttributeAt", e); err != nil {
		return err
	}
	if slot < 0 || slot >= len(e.values) {
		return &Error{
			Code:    CodeSchema,
			Op:      "SetAttributeAt",
			ID:      e.id,
			Type:    e.typ,
			Message: fmt.Sprintf("slot %d out of range [0,%d)", slot, len(e.values)),
		}
	}
	return d.setAttribute("SetAttributeAt", e, slot, v)
}

func (d *Document) setAttribute(op string, e *Entity, slot int, raw any) error {
	attr, _ := d.table.AttributeAt(e.typ, slot)

	v, err := d.toValue(op, raw)
	if err != nil {
		return err
	}
	v, err = d.checkValue(op, e.typ, attr, v)
	if err != nil {
		return err
	}
	if slot == d.table.UniqueSlot(e.typ) {
		if err := d.checkUnique(op, e.typ, e.id, v); err != nil {
			return err
		}
	}

	d.setSlotLogged(e, slot, v)
	metrics.AttributeWrites.Inc()
	d.logger.Debug("attribute set",
		"id", e.id,
		"type", e.typ,
		"attr", attr.Name,
	)
	return nil
}

// setSlotLogged writes a slot and records the change when a transaction is open.
func (d *Document) setSlotLogged(e *Entity, slot int, v ir.Value) {
	before := ir.Clone(e.values[slot])
	d.writeSlot(e, slot, v)
	d.record(&setOp{e: e, slot: slot, before: before, after: ir.Clone(v)})
}

// owns checks that e is attached to d.
func (d *Document) owns(op string, e *Entity) error {
	if e == nil {
		return notFound(op, 0, "nil entity")
	}
	if e.doc != d {
		return notFound(op, e.id, "entity is not in this document")
	}
	return nil
}
