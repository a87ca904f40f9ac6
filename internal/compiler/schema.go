package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/stepdoc/internal/schema"
)

// CompileSchema parses a CUE value into a schema.Table.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a schema file:
//
//	schema: "IFC4"
//	entity: IfcWall: {
//		supertype: "IfcBuildingElement"
//		attributes: [{name: "PredefinedType", kind: "enum", optional: true}]
//	}
func CompileSchema(v cue.Value) (*schema.Table, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("schema"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "schema",
			Message: "schema name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "at least one entity is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	b := schema.NewBuilder(name)
	count := 0
	for iter.Next() {
		decl, err := parseEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		b.Add(decl)
		count++
	}
	if count == 0 {
		return nil, &CompileError{
			Field:   "entity",
			Message: "at least one entity is required",
			Pos:     entityVal.Pos(),
		}
	}

	table, err := b.Build()
	if err != nil {
		return nil, &CompileError{
			Field:   "entity",
			Message: err.Error(),
			Pos:     entityVal.Pos(),
		}
	}
	return table, nil
}

// parseEntity reads one entity declaration.
func parseEntity(name string, v cue.Value) (schema.Entity, error) {
	decl := schema.Entity{Name: name}
	field := "entity." + name

	var err error
	if decl.Supertype, err = optionalString(v, "supertype"); err != nil {
		return decl, err
	}
	if decl.Unique, err = optionalString(v, "unique"); err != nil {
		return decl, err
	}
	if decl.Abstract, err = optionalBool(v, "abstract"); err != nil {
		return decl, err
	}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() || !attrsVal.IsConcrete() {
		return decl, nil
	}

	attrIter, err := attrsVal.List()
	if err != nil {
		return decl, formatCUEError(err)
	}

	for attrIter.Next() {
		attrVal := attrIter.Value()

		attrName, err := attrVal.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return decl, formatCUEError(err)
		}

		kindName, err := attrVal.LookupPath(cue.ParsePath("kind")).String()
		if err != nil {
			return decl, formatCUEError(err)
		}
		kind, err := schema.ParseKind(kindName)
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("%s.%s.kind", field, attrName),
				Message: err.Error(),
				Pos:     attrVal.Pos(),
			}
		}

		attr := schema.Attribute{Name: attrName, Kind: kind}
		if attr.Optional, err = optionalBool(attrVal, "optional"); err != nil {
			return decl, err
		}
		if attr.Target, err = optionalString(attrVal, "target"); err != nil {
			return decl, err
		}

		decl.Own = append(decl.Own, attr)
	}

	return decl, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() || !f.IsConcrete() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() || !f.IsConcrete() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}
