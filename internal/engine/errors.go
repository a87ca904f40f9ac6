package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/stepdoc/internal/ir"
)

// Code categorizes document errors.
type Code string

const (
	// CodeNotFound indicates a lookup of an absent identity, GUID or entity.
	CodeNotFound Code = "NOT_FOUND"

	// CodeSchema indicates an unknown type or attribute, or a value whose
	// shape does not match the attribute kind.
	CodeSchema Code = "SCHEMA"

	// CodeArity indicates more positional values than the type has slots.
	CodeArity Code = "ARITY"

	// CodeIllegalState indicates a call that is not valid in the current
	// transaction or batch state.
	CodeIllegalState Code = "ILLEGAL_STATE"

	// CodeDuplicate indicates an identity or unique key that is already taken.
	CodeDuplicate Code = "DUPLICATE"
)

// Error is returned by every Document operation that fails.
//
// A failed operation leaves the document unchanged.
type Error struct {
	Code Code

	// Op names the operation, e.g. "CreateEntity".
	Op string

	ID   ir.ID
	Type string
	Attr string

	Message string
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrSchema       = &Error{Code: CodeSchema}
	ErrArity        = &Error{Code: CodeArity}
	ErrIllegalState = &Error{Code: CodeIllegalState}
	ErrDuplicate    = &Error{Code: CodeDuplicate}
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	var ctx []string
	if e.ID.Valid() {
		ctx = append(ctx, "id="+e.ID.String())
	}
	if e.Type != "" {
		ctx = append(ctx, "type="+e.Type)
	}
	if e.Attr != "" {
		ctx = append(ctx, "attr="+e.Attr)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// Is matches on Code so wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsIllegalState returns true if err is an ILLEGAL_STATE error.
func IsIllegalState(err error) bool {
	return CodeOf(err) == CodeIllegalState
}

// IsSchemaError returns true if err is a SCHEMA error.
func IsSchemaError(err error) bool {
	return CodeOf(err) == CodeSchema
}

func notFound(op string, id ir.ID, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Op: op, ID: id, Message: fmt.Sprintf(format, args...)}
}

func schemaError(op, typeName, attr, format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Op: op, Type: typeName, Attr: attr, Message: fmt.Sprintf(format, args...)}
}

func illegalState(op, format string, args ...any) *Error {
	return &Error{Code: CodeIllegalState, Op: op, Message: fmt.Sprintf(format, args...)}
}
