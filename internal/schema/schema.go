package schema

import (
	"slices"
	"strings"
)

// Attribute is one declared slot of an entity type.
type Attribute struct {
	Name     string
	Kind     Kind
	Optional bool

	// Target restricts Ref and RefList slots to instances of this type
	// (subtypes included). Empty accepts any entity.
	Target string
}

// Entity is the declaration of an entity type as written in the schema source.
type Entity struct {
	Name      string
	Supertype string
	Abstract  bool

	// Own lists the attributes declared on this type, excluding inherited ones.
	Own []Attribute

	// Unique names the attribute holding the business key (e.g. GlobalId).
	// Subtypes inherit it.
	Unique string
}

// resolved is the flattened view of one entity type.
type resolved struct {
	decl       Entity
	attrs      []Attribute
	slots      map[string]int
	supertypes []string
	subtypes   []string
	unique     int
}

// Table is an immutable, validated schema.
type Table struct {
	name  string
	types map[string]*resolved
	names []string
}

// Name returns the schema identifier (e.g. "IFC4").
func (t *Table) Name() string {
	return t.name
}

// Names returns every canonical type name in sorted order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

// Lookup resolves a type name case-insensitively.
func (t *Table) Lookup(name string) (Entity, bool) {
	r, ok := t.types[strings.ToLower(name)]
	if !ok {
		return Entity{}, false
	}
	return r.decl, true
}

// Canonical returns the declared spelling of a type name.
func (t *Table) Canonical(name string) (string, bool) {
	r, ok := t.types[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return r.decl.Name, true
}

// Attributes returns the flattened slot list of a type, inherited first.
func (t *Table) Attributes(typeName string) []Attribute {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return nil
	}
	return slices.Clone(r.attrs)
}

// AttributeAt returns the attribute occupying a slot.
func (t *Table) AttributeAt(typeName string, slot int) (Attribute, bool) {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok || slot < 0 || slot >= len(r.attrs) {
		return Attribute{}, false
	}
	return r.attrs[slot], true
}

// Slot returns the position of a named attribute within a type's slot list.
func (t *Table) Slot(typeName, attr string) (int, bool) {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return 0, false
	}
	slot, ok := r.slots[strings.ToLower(attr)]
	return slot, ok
}

// Arity returns the number of slots of a type, or -1 for unknown types.
func (t *Table) Arity(typeName string) int {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return -1
	}
	return len(r.attrs)
}

// IsSubtypeOf reports whether typeName equals super or derives from it.
func (t *Table) IsSubtypeOf(typeName, super string) bool {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return false
	}
	if strings.EqualFold(r.decl.Name, super) {
		return true
	}
	for _, s := range r.supertypes {
		if strings.EqualFold(s, super) {
			return true
		}
	}
	return false
}

// Supertypes returns the ancestor chain of a type, nearest first.
func (t *Table) Supertypes(typeName string) []string {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return nil
	}
	return slices.Clone(r.supertypes)
}

// Subtypes returns every transitive subtype of a type in sorted order,
// excluding the type itself.
func (t *Table) Subtypes(typeName string) []string {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return nil
	}
	return slices.Clone(r.subtypes)
}

// UniqueSlot returns the slot of the unique-key attribute, or -1 when the
// type has none.
func (t *Table) UniqueSlot(typeName string) int {
	r, ok := t.types[strings.ToLower(typeName)]
	if !ok {
		return -1
	}
	return r.unique
}
