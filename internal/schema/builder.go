package schema

import (
	"fmt"
	"slices"
	"strings"
)

// BuildError reports an invalid declaration.
type BuildError struct {
	Entity  string
	Attr    string
	Message string
}

func (e *BuildError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("schema: %s.%s: %s", e.Entity, e.Attr, e.Message)
	}
	return fmt.Sprintf("schema: %s: %s", e.Entity, e.Message)
}

// Builder collects entity declarations and validates them into a Table.
type Builder struct {
	name  string
	decls []Entity
}

// NewBuilder starts a schema with the given identifier.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Add appends a declaration. Declarations may reference supertypes added later.
func (b *Builder) Add(e Entity) *Builder {
	b.decls = append(b.decls, e)
	return b
}

// Build validates every declaration and flattens the inheritance tree.
func (b *Builder) Build() (*Table, error) {
	if strings.TrimSpace(b.name) == "" {
		return nil, &BuildError{Entity: "<schema>", Message: "schema name is required"}
	}

	t := &Table{
		name:  b.name,
		types: make(map[string]*resolved, len(b.decls)),
	}

	for _, decl := range b.decls {
		if strings.TrimSpace(decl.Name) == "" {
			return nil, &BuildError{Entity: "<unnamed>", Message: "entity name is required"}
		}
		key := strings.ToLower(decl.Name)
		if _, dup := t.types[key]; dup {
			return nil, &BuildError{Entity: decl.Name, Message: "duplicate entity"}
		}
		t.types[key] = &resolved{decl: decl, unique: -1}
		t.names = append(t.names, decl.Name)
	}
	slices.Sort(t.names)

	// Unknown supertypes and cycles are detected while walking each chain.
	for _, name := range t.names {
		r := t.types[strings.ToLower(name)]
		seen := map[string]bool{strings.ToLower(name): true}
		for super := r.decl.Supertype; super != ""; {
			sr, ok := t.types[strings.ToLower(super)]
			if !ok {
				return nil, &BuildError{Entity: name, Message: fmt.Sprintf("unknown supertype %q", super)}
			}
			if seen[strings.ToLower(sr.decl.Name)] {
				return nil, &BuildError{Entity: name, Message: "inheritance cycle"}
			}
			seen[strings.ToLower(sr.decl.Name)] = true
			r.supertypes = append(r.supertypes, sr.decl.Name)
			sr.subtypes = append(sr.subtypes, name)
			super = sr.decl.Supertype
		}
	}

	for _, name := range t.names {
		r := t.types[strings.ToLower(name)]
		slices.Sort(r.subtypes)
		if err := t.flatten(r); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// flatten lays out inherited attributes root-first and checks each slot.
func (t *Table) flatten(r *resolved) error {
	chain := make([]*resolved, 0, len(r.supertypes)+1)
	for i := len(r.supertypes) - 1; i >= 0; i-- {
		chain = append(chain, t.types[strings.ToLower(r.supertypes[i])])
	}
	chain = append(chain, r)

	r.slots = make(map[string]int)
	unique := ""
	for _, link := range chain {
		if link.decl.Unique != "" {
			unique = link.decl.Unique
		}
		for _, attr := range link.decl.Own {
			if err := t.checkAttribute(link.decl.Name, attr); err != nil {
				return err
			}
			key := strings.ToLower(attr.Name)
			if _, dup := r.slots[key]; dup {
				return &BuildError{Entity: r.decl.Name, Attr: attr.Name, Message: "duplicate attribute"}
			}
			r.slots[key] = len(r.attrs)
			r.attrs = append(r.attrs, attr)
		}
	}

	if unique != "" {
		slot, ok := r.slots[strings.ToLower(unique)]
		if !ok {
			return &BuildError{Entity: r.decl.Name, Attr: unique, Message: "unique key names no attribute"}
		}
		if r.attrs[slot].Kind != KindString {
			return &BuildError{Entity: r.decl.Name, Attr: unique, Message: "unique key must be a string attribute"}
		}
		r.unique = slot
	}
	return nil
}

func (t *Table) checkAttribute(owner string, attr Attribute) error {
	if strings.TrimSpace(attr.Name) == "" {
		return &BuildError{Entity: owner, Message: "attribute name is required"}
	}
	if _, ok := kindNames[attr.Kind]; !ok {
		return &BuildError{Entity: owner, Attr: attr.Name, Message: fmt.Sprintf("invalid kind %v", attr.Kind)}
	}
	if attr.Target == "" {
		return nil
	}
	if !attr.Kind.IsReference() {
		return &BuildError{Entity: owner, Attr: attr.Name, Message: "target is only valid on ref and reflist attributes"}
	}
	if _, ok := t.types[strings.ToLower(attr.Target)]; !ok {
		return &BuildError{Entity: owner, Attr: attr.Name, Message: fmt.Sprintf("unknown target type %q", attr.Target)}
	}
	return nil
}

// MustBuild is Build for fixtures; it panics on an invalid declaration.
func (b *Builder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
