package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
)

// replayCheck dry-runs a replay against overlays of the identity and
// unique-key indices. Edits made outside transactions can hand an identity or
// key to another entity after a transaction was logged; replaying such a
// transaction would leave two live owners.
type replayCheck struct {
	d        *Document
	op       string
	present  map[ir.ID]bool
	attached map[*Entity]bool
	owners   map[string]ir.ID // 0 marks a released key
	keys     map[*Entity]ir.Value
}

func newReplayCheck(d *Document, op string) *replayCheck {
	return &replayCheck{
		d:        d,
		op:       op,
		present:  make(map[ir.ID]bool),
		attached: make(map[*Entity]bool),
		owners:   make(map[string]ir.ID),
		keys:     make(map[*Entity]ir.Value),
	}
}

// checkReplay reports the first conflict replaying ops would cause, in the
// order given, undoing or redoing each.
func (d *Document) checkReplay(op string, ops []op, undo bool) error {
	s := newReplayCheck(d, op)
	for _, o := range ops {
		if err := o.check(s, undo); err != nil {
			return err
		}
	}
	return nil
}

func (s *replayCheck) isPresent(id ir.ID) bool {
	if p, ok := s.present[id]; ok {
		return p
	}
	_, ok := s.d.entities.Get(id)
	return ok
}

func (s *replayCheck) isAttached(e *Entity) bool {
	if a, ok := s.attached[e]; ok {
		return a
	}
	return e.doc == s.d
}

func (s *replayCheck) owner(guid string) (ir.ID, bool) {
	if id, ok := s.owners[guid]; ok {
		return id, id != 0
	}
	id, ok := s.d.guids[guid]
	return id, ok
}

func (s *replayCheck) key(e *Entity) (string, bool) {
	v, ok := s.keys[e]
	if !ok {
		slot := s.d.table.UniqueSlot(e.typ)
		if slot < 0 {
			return "", false
		}
		v = e.values[slot]
	}
	guid, isString := v.(ir.String)
	return string(guid), isString
}

func (s *replayCheck) claim(e *Entity, guid string) error {
	if owner, taken := s.owner(guid); taken && owner != e.id {
		return &Error{
			Code:    CodeDuplicate,
			Op:      s.op,
			ID:      owner,
			Type:    e.typ,
			Message: fmt.Sprintf("unique key %q of %s is now held by %s", guid, e.id, owner),
		}
	}
	s.owners[guid] = e.id
	return nil
}

func (s *replayCheck) release(e *Entity) {
	if guid, ok := s.key(e); ok {
		if owner, taken := s.owner(guid); taken && owner == e.id {
			s.owners[guid] = 0
		}
	}
}

func (s *replayCheck) attach(e *Entity, values []ir.Value) error {
	if s.isPresent(e.id) {
		return &Error{
			Code:    CodeDuplicate,
			Op:      s.op,
			ID:      e.id,
			Type:    e.typ,
			Message: fmt.Sprintf("identity %s is held by another entity", e.id),
		}
	}
	if slot := s.d.table.UniqueSlot(e.typ); slot >= 0 {
		s.keys[e] = values[slot]
		if guid, ok := s.key(e); ok {
			if err := s.claim(e, guid); err != nil {
				return err
			}
		}
	}
	s.present[e.id] = true
	s.attached[e] = true
	return nil
}

func (s *replayCheck) detach(e *Entity) {
	s.release(e)
	s.present[e.id] = false
	s.attached[e] = false
}

func (s *replayCheck) write(e *Entity, slot int, v ir.Value) error {
	if s.d.table.UniqueSlot(e.typ) != slot {
		return nil
	}
	if !s.isAttached(e) {
		s.keys[e] = v
		return nil
	}
	s.release(e)
	s.keys[e] = v
	if guid, ok := s.key(e); ok {
		return s.claim(e, guid)
	}
	return nil
}
