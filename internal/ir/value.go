package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID is the document-assigned identity of an entity.
// Valid identities are strictly positive.
type ID int64

// Valid reports whether the identity can name an entity.
func (id ID) Valid() bool {
	return id > 0
}

// String returns the STEP-style "#n" form.
func (id ID) String() string {
	return "#" + strconv.FormatInt(int64(id), 10)
}

// Value is a sealed interface representing attribute values.
// Only Null, String, Int, Real, Bool, Enum, Ref, RefList and Aggregate implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null is an unset attribute ("$" in STEP text).
type Null struct{}

func (Null) irValue() {}

// String is a text value.
type String string

func (String) irValue() {}

// Int is an integer value.
type Int int64

func (Int) irValue() {}

// Real is a floating point value.
type Real float64

func (Real) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Enum is an enumeration literal, stored without the surrounding dots.
type Enum string

func (Enum) irValue() {}

// Ref is a single reference to another entity.
// An unset reference is Null, never Ref(0).
type Ref ID

func (Ref) irValue() {}

// RefList is an ordered list of entity references.
type RefList []ID

func (RefList) irValue() {}

// Aggregate is an ordered collection of simple (non-reference) values.
// Aggregates may nest.
type Aggregate []Value

func (Aggregate) irValue() {}

// IsNull reports whether v is unset. A nil Value counts as unset.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Refs returns the identities referenced by v, in slot order.
// Simple values and aggregates reference nothing.
func Refs(v Value) []ID {
	switch val := v.(type) {
	case Ref:
		return []ID{ID(val)}
	case RefList:
		out := make([]ID, len(val))
		copy(out, val)
		return out
	default:
		return nil
	}
}

// IsReference reports whether v is a Ref or RefList.
func IsReference(v Value) bool {
	switch v.(type) {
	case Ref, RefList:
		return true
	default:
		return false
	}
}

// Clone returns a copy of v that shares no backing arrays with it.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case RefList:
		out := make(RefList, len(val))
		copy(out, val)
		return out
	case Aggregate:
		out := make(Aggregate, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// CloneAll copies a slice of values.
func CloneAll(vals []Value) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = Clone(v)
	}
	return out
}

// Equal reports whether two values are identical in kind and content.
// A nil Value equals Null.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Real:
		y, ok := b.(Real)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Enum:
		y, ok := b.(Enum)
		return ok && x == y
	case Ref:
		y, ok := b.(Ref)
		return ok && x == y
	case RefList:
		y, ok := b.(RefList)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Aggregate:
		y, ok := b.(Aggregate)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// KindName returns a short name for the dynamic kind of v.
func KindName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	case Ref:
		return "ref"
	case RefList:
		return "reflist"
	case Aggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Format renders v in a compact STEP-like notation for logs and CLI output.
// It is not the serialization format; see package spf for that.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "$"
	case String:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Real:
		return FormatReal(float64(val))
	case Bool:
		if val {
			return ".T."
		}
		return ".F."
	case Enum:
		return "." + string(val) + "."
	case Ref:
		return ID(val).String()
	case RefList:
		parts := make([]string, len(val))
		for i, id := range val {
			parts[i] = id.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	case Aggregate:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// FormatReal renders a float so that it always reads back as a real:
// the mantissa carries a '.', as ISO 10303-21 requires.
func FormatReal(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'G', -1, 64)
	mantissa, exp, hasExp := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += "."
	}
	if hasExp {
		return mantissa + "E" + exp
	}
	return mantissa
}

// NormalizeText returns the stored form of a text value: invalid UTF-8
// sequences become U+FFFD and the result is NFC normalized.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "\uFFFD"))
}
