package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
)

// op is one invertible step of a transaction. Each record carries both the
// data to revert the forward mutation and the data to apply it again, so
// undo and redo never consult the current state to decide what to do.
//
// Replays go straight to attach, detach and writeSlot: they never validate,
// cascade or record.
type op interface {
	undo(d *Document)
	redo(d *Document)
	describe() string
	// check applies the replay to s without touching the document.
	check(s *replayCheck, undo bool) error
}

// createOp records the creation (or import) of an entity.
type createOp struct {
	e      *Entity
	values []ir.Value
}

func (o *createOp) undo(d *Document) {
	d.detach(o.e)
}

func (o *createOp) redo(d *Document) {
	o.e.values = ir.CloneAll(o.values)
	d.attach(o.e)
}

func (o *createOp) check(s *replayCheck, undo bool) error {
	if undo {
		s.detach(o.e)
		return nil
	}
	return s.attach(o.e, o.values)
}

func (o *createOp) describe() string {
	return fmt.Sprintf("create %s %s", o.e.id, o.e.typ)
}

// removeOp records the removal of an entity. Cascaded reference clears are
// separate setOps logged before it.
type removeOp struct {
	e      *Entity
	values []ir.Value
}

func (o *removeOp) undo(d *Document) {
	o.e.values = ir.CloneAll(o.values)
	d.attach(o.e)
}

func (o *removeOp) redo(d *Document) {
	d.detach(o.e)
}

func (o *removeOp) check(s *replayCheck, undo bool) error {
	if undo {
		return s.attach(o.e, o.values)
	}
	s.detach(o.e)
	return nil
}

func (o *removeOp) describe() string {
	return fmt.Sprintf("remove %s %s", o.e.id, o.e.typ)
}

// setOp records one attribute assignment.
type setOp struct {
	e             *Entity
	slot          int
	before, after ir.Value
}

func (o *setOp) undo(d *Document) {
	d.writeSlot(o.e, o.slot, ir.Clone(o.before))
}

func (o *setOp) redo(d *Document) {
	d.writeSlot(o.e, o.slot, ir.Clone(o.after))
}

func (o *setOp) check(s *replayCheck, undo bool) error {
	if undo {
		return s.write(o.e, o.slot, o.before)
	}
	return s.write(o.e, o.slot, o.after)
}

func (o *setOp) describe() string {
	name := fmt.Sprintf("[%d]", o.slot)
	if attr, ok := o.e.table.AttributeAt(o.e.typ, o.slot); ok {
		name = attr.Name
	}
	return fmt.Sprintf("set %s.%s %s -> %s", o.e.id, name, ir.Format(o.before), ir.Format(o.after))
}
