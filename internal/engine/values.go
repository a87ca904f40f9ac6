package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// toValue converts a caller-supplied Go value into an ir.Value.
//
// Accepted: ir.Value, nil, string, bool, the int family, float32/float64,
// *Entity (a reference) and []*Entity (a reference list). Entities must belong
// to d; a handle from another document would alias an unrelated identity.
func (d *Document) toValue(op string, v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return ir.Null{}, nil
	case ir.Value:
		return val, nil
	case string:
		return ir.String(val), nil
	case bool:
		return ir.Bool(val), nil
	case int:
		return ir.Int(val), nil
	case int32:
		return ir.Int(val), nil
	case int64:
		return ir.Int(val), nil
	case float32:
		return ir.Real(val), nil
	case float64:
		return ir.Real(val), nil
	case *Entity:
		if val == nil {
			return ir.Null{}, nil
		}
		if val.doc != d {
			return nil, notFound(op, val.id, "referenced entity does not belong to this document")
		}
		return ir.Ref(val.id), nil
	case []*Entity:
		list := make(ir.RefList, 0, len(val))
		for _, e := range val {
			if e == nil || e.doc != d {
				return nil, notFound(op, 0, "referenced entity does not belong to this document")
			}
			list = append(list, e.id)
		}
		return list, nil
	default:
		return nil, &Error{Code: CodeSchema, Op: op, Message: fmt.Sprintf("unsupported value type %T", v)}
	}
}

// checkValue coerces v to the attribute's kind and verifies that every
// reference points at an attached entity of the declared target type.
func (d *Document) checkValue(op, typeName string, attr schema.Attribute, v ir.Value) (ir.Value, error) {
	coerced, ok := attr.Kind.Coerce(v)
	if !ok {
		return nil, schemaError(op, typeName, attr.Name, "%s value does not fit %s attribute", ir.KindName(v), attr.Kind)
	}

	for _, id := range ir.Refs(coerced) {
		target, found := d.entities.Get(id)
		if !found {
			return nil, notFound(op, id, "referenced entity %s of %s.%s does not exist", id, typeName, attr.Name)
		}
		if attr.Target != "" && !target.Is(attr.Target) {
			return nil, schemaError(op, typeName, attr.Name, "%s is %s, expected %s", id, target.typ, attr.Target)
		}
	}
	return ir.Clone(coerced), nil
}

// checkUnique rejects a unique-key value already held by another entity.
func (d *Document) checkUnique(op, typeName string, self ir.ID, v ir.Value) error {
	guid, ok := v.(ir.String)
	if !ok {
		return nil
	}
	if owner, taken := d.guids[string(guid)]; taken && owner != self {
		return &Error{
			Code:    CodeDuplicate,
			Op:      op,
			ID:      owner,
			Type:    typeName,
			Message: fmt.Sprintf("unique key %q is already used", string(guid)),
		}
	}
	return nil
}
