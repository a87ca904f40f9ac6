package spf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
)

// Marshal writes doc as an exchange file. Entities are written in identity
// order with upper-case type names. FILE_SCHEMA defaults to the document's
// schema name when the header leaves it empty.
func Marshal(doc *engine.Document, header Header) ([]byte, error) {
	var b strings.Builder
	b.WriteString(magic + ";\n")
	header.write(&b, doc.Schema().Name())

	b.WriteString("DATA;\n")
	for _, e := range doc.Entities() {
		b.WriteString(e.ID().String())
		b.WriteByte('=')
		b.WriteString(strings.ToUpper(e.Type()))
		b.WriteByte('(')
		for i, v := range e.Values() {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeValue(&b, v); err != nil {
				return nil, fmt.Errorf("marshal %s: %w", e.ID(), err)
			}
		}
		b.WriteString(");\n")
	}
	b.WriteString("ENDSEC;\n")
	b.WriteString("END-" + magic + ";\n")
	return []byte(b.String()), nil
}

func writeValue(b *strings.Builder, v ir.Value) error {
	switch val := v.(type) {
	case nil, ir.Null:
		b.WriteByte('$')
	case ir.String:
		b.WriteString(quote(string(val)))
	case ir.Int:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case ir.Real:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("real %v has no exchange representation", f)
		}
		b.WriteString(ir.FormatReal(f))
	case ir.Bool:
		if val {
			b.WriteString(".T.")
		} else {
			b.WriteString(".F.")
		}
	case ir.Enum:
		b.WriteString("." + string(val) + ".")
	case ir.Ref:
		b.WriteString(ir.ID(val).String())
	case ir.RefList:
		b.WriteByte('(')
		for i, id := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(id.String())
		}
		b.WriteByte(')')
	case ir.Aggregate:
		b.WriteByte('(')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeValue(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

// quote renders s as a string literal. Quotes are doubled, backslashes
// escaped and every run of characters outside printable ASCII is written as
// one \X2\...\X0\ group of UTF-16 code units. The text is written as
// stored; the engine keeps strings in ir.NormalizeText form.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	var run []rune
	flush := func() {
		if len(run) == 0 {
			return
		}
		b.WriteString(`\X2\`)
		for _, u := range utf16.Encode(run) {
			fmt.Fprintf(&b, "%04X", u)
		}
		b.WriteString(`\X0\`)
		run = run[:0]
	}

	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			run = append(run, r)
			continue
		}
		flush()
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	flush()
	b.WriteByte('\'')
	return b.String()
}
