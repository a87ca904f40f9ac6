package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/stepdoc/internal/ir"
)

// Kind is the value shape an attribute slot accepts.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindReal
	KindBool
	KindEnum
	KindRef
	KindRefList
	KindAggregate
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindInt:       "int",
	KindReal:      "real",
	KindBool:      "bool",
	KindEnum:      "enum",
	KindRef:       "ref",
	KindRefList:   "reflist",
	KindAggregate: "aggregate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsReference reports whether slots of this kind take part in the inverse index.
func (k Kind) IsReference() bool {
	return k == KindRef || k == KindRefList
}

// ParseKind resolves the lower-case kind name used in CUE schemas.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown attribute kind %q", s)
}

// Coerce checks v against the kind and returns its normalized form.
// Null is accepted by every kind. An Int is widened for real slots and an
// empty Aggregate is read as an empty RefList for list slots. Text is
// returned in its stored form (see ir.NormalizeText), at any aggregate depth.
// Aggregates may not hold the enumerations T or F, which read back as
// booleans.
func (k Kind) Coerce(v ir.Value) (ir.Value, bool) {
	if ir.IsNull(v) {
		return ir.Null{}, true
	}

	switch k {
	case KindString:
		str, ok := v.(ir.String)
		if !ok {
			return v, false
		}
		return ir.String(ir.NormalizeText(string(str))), true
	case KindInt:
		_, ok := v.(ir.Int)
		return v, ok
	case KindReal:
		switch val := v.(type) {
		case ir.Real:
			return val, true
		case ir.Int:
			return ir.Real(float64(val)), true
		}
		return v, false
	case KindBool:
		_, ok := v.(ir.Bool)
		return v, ok
	case KindEnum:
		_, ok := v.(ir.Enum)
		return v, ok
	case KindRef:
		_, ok := v.(ir.Ref)
		return v, ok
	case KindRefList:
		switch val := v.(type) {
		case ir.RefList:
			return val, true
		case ir.Aggregate:
			if len(val) == 0 {
				return ir.RefList{}, true
			}
		}
		return v, false
	case KindAggregate:
		agg, ok := v.(ir.Aggregate)
		if !ok || !simpleOnly(agg) {
			return v, false
		}
		return normalizeAggregate(agg), true
	}
	return v, false
}

func normalizeAggregate(agg ir.Aggregate) ir.Aggregate {
	if agg == nil {
		return nil
	}
	out := make(ir.Aggregate, len(agg))
	for i, elem := range agg {
		switch val := elem.(type) {
		case ir.String:
			out[i] = ir.String(ir.NormalizeText(string(val)))
		case ir.Aggregate:
			out[i] = normalizeAggregate(val)
		default:
			out[i] = elem
		}
	}
	return out
}

// simpleOnly reports whether an aggregate holds no references and no
// boolean-looking enumerations at any depth.
func simpleOnly(agg ir.Aggregate) bool {
	for _, elem := range agg {
		switch val := elem.(type) {
		case ir.Ref, ir.RefList:
			return false
		case ir.Enum:
			if strings.EqualFold(string(val), "T") || strings.EqualFold(string(val), "F") {
				return false
			}
		case ir.Aggregate:
			if !simpleOnly(val) {
				return false
			}
		}
	}
	return true
}
