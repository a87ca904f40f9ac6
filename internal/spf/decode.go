package spf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/stepdoc/internal/compiler"
	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// ErrUnknownSchema is returned when no supplied table matches FILE_SCHEMA.
var ErrUnknownSchema = errors.New("spf: no table for the file schema")

// File is a decoded exchange file.
type File struct {
	Header   Header
	Document *engine.Document
}

// Unmarshal parses an exchange file into a new document.
//
// The table whose name matches the first FILE_SCHEMA entry is used. With no
// tables the built-in IFC4 table is tried.
func Unmarshal(data []byte, tables ...*schema.Table) (*engine.Document, error) {
	f, err := Decode(data, tables)
	if err != nil {
		return nil, err
	}
	return f.Document, nil
}

// Decode parses an exchange file and keeps its header. Options are passed to
// the new document.
func Decode(data []byte, tables []*schema.Table, opts ...engine.Option) (*File, error) {
	parsed, err := parse(string(data))
	if err != nil {
		return nil, err
	}
	header, err := readHeader(parsed.header)
	if err != nil {
		return nil, err
	}

	table, err := selectTable(header.Schemas, tables)
	if err != nil {
		return nil, err
	}

	records := make([]engine.Record, 0, len(parsed.data))
	for _, inst := range parsed.data {
		rec, err := bindInstance(table, inst)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	doc, err := engine.Load(table, records, opts...)
	if err != nil {
		return nil, fmt.Errorf("spf: %w", err)
	}
	return &File{Header: header, Document: doc}, nil
}

func selectTable(schemas []string, tables []*schema.Table) (*schema.Table, error) {
	if len(tables) == 0 {
		builtin, err := compiler.IFC4()
		if err != nil {
			return nil, fmt.Errorf("spf: built-in schema: %w", err)
		}
		tables = []*schema.Table{builtin}
	}

	if len(schemas) == 0 {
		if len(tables) == 1 {
			return tables[0], nil
		}
		return nil, fmt.Errorf("%w: FILE_SCHEMA is empty", ErrUnknownSchema)
	}
	for _, t := range tables {
		if strings.EqualFold(t.Name(), schemas[0]) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schemas[0])
}

func bindInstance(table *schema.Table, inst instance) (engine.Record, error) {
	id := ir.ID(inst.id)
	fail := func(attr, format string, args ...any) error {
		return fmt.Errorf("spf: line %d: %w", inst.line, &engine.Error{
			Code:    engine.CodeSchema,
			Op:      "Unmarshal",
			ID:      id,
			Type:    inst.typ,
			Attr:    attr,
			Message: fmt.Sprintf(format, args...),
		})
	}

	typ, ok := table.Canonical(inst.typ)
	if !ok {
		return engine.Record{}, fail("", "unknown entity type")
	}
	attrs := table.Attributes(typ)
	if len(inst.params) > len(attrs) {
		return engine.Record{}, fmt.Errorf("spf: line %d: %w", inst.line, &engine.Error{
			Code:    engine.CodeArity,
			Op:      "Unmarshal",
			ID:      id,
			Type:    typ,
			Message: fmt.Sprintf("%d parameters for %d attributes", len(inst.params), len(attrs)),
		})
	}

	values := make([]ir.Value, len(inst.params))
	for i, p := range inst.params {
		v, err := bind(attrs[i].Kind, p)
		if err != nil {
			return engine.Record{}, fail(attrs[i].Name, "%v", err)
		}
		values[i] = v
	}
	return engine.Record{ID: id, Type: typ, Values: values}, nil
}

// bind converts a parameter to the value shape of an attribute kind.
func bind(kind schema.Kind, p param) (ir.Value, error) {
	switch p.kind {
	case paramNull, paramDerived:
		return ir.Null{}, nil
	case paramTyped:
		return bind(kind, p.list[0])
	}

	mismatch := func() error {
		return fmt.Errorf("%s parameter at col %d does not fit %s attribute", p.kind, p.col, kind)
	}

	switch kind {
	case schema.KindString:
		if p.kind == paramString {
			return ir.String(p.text), nil
		}
	case schema.KindInt:
		if p.kind == paramInt {
			return ir.Int(p.i), nil
		}
	case schema.KindReal:
		switch p.kind {
		case paramReal:
			return ir.Real(p.f), nil
		case paramInt:
			return ir.Real(float64(p.i)), nil
		}
	case schema.KindBool:
		if p.kind == paramEnum {
			if b, ok := parseBool(p.text); ok {
				return ir.Bool(b), nil
			}
		}
	case schema.KindEnum:
		if p.kind == paramEnum {
			return ir.Enum(p.text), nil
		}
	case schema.KindRef:
		if p.kind == paramRef {
			return ir.Ref(p.i), nil
		}
	case schema.KindRefList:
		if p.kind == paramList {
			list := make(ir.RefList, 0, len(p.list))
			for _, elem := range p.list {
				if elem.kind != paramRef {
					return nil, mismatch()
				}
				list = append(list, ir.ID(elem.i))
			}
			return list, nil
		}
	case schema.KindAggregate:
		if p.kind == paramList {
			return bindGeneric(p)
		}
	}
	return nil, mismatch()
}

// bindGeneric converts a parameter that has no schema kind, such as an
// aggregate element. .T. and .F. read as booleans.
func bindGeneric(p param) (ir.Value, error) {
	switch p.kind {
	case paramNull, paramDerived:
		return ir.Null{}, nil
	case paramString:
		return ir.String(p.text), nil
	case paramInt:
		return ir.Int(p.i), nil
	case paramReal:
		return ir.Real(p.f), nil
	case paramEnum:
		if b, ok := parseBool(p.text); ok {
			return ir.Bool(b), nil
		}
		return ir.Enum(p.text), nil
	case paramTyped:
		return bindGeneric(p.list[0])
	case paramList:
		agg := make(ir.Aggregate, 0, len(p.list))
		for _, elem := range p.list {
			v, err := bindGeneric(elem)
			if err != nil {
				return nil, err
			}
			agg = append(agg, v)
		}
		return agg, nil
	default:
		return nil, fmt.Errorf("%s parameter at col %d is not allowed in an aggregate", p.kind, p.col)
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToUpper(s) {
	case "T":
		return true, true
	case "F":
		return false, true
	}
	return false, false
}

func (k paramKind) String() string {
	switch k {
	case paramNull:
		return "unset"
	case paramDerived:
		return "derived"
	case paramString:
		return "string"
	case paramInt:
		return "integer"
	case paramReal:
		return "real"
	case paramEnum:
		return "enumeration"
	case paramRef:
		return "reference"
	case paramList:
		return "list"
	case paramTyped:
		return "typed"
	default:
		return "unknown"
	}
}
