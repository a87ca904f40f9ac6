package spf

import (
	"fmt"
	"strings"

	"github.com/roach88/stepdoc/internal/ir"
)

const magic = "ISO-10303-21"

// Header holds the HEADER section entities.
type Header struct {
	// FILE_DESCRIPTION
	Description         []string
	ImplementationLevel string

	// FILE_NAME
	Name                string
	TimeStamp           string
	Author              []string
	Organization        []string
	PreprocessorVersion string
	OriginatingSystem   string
	Authorization       string

	// FILE_SCHEMA
	Schemas []string
}

// DefaultHeader returns the header written when the caller supplies none.
// The time stamp is left empty so output is reproducible.
func DefaultHeader() Header {
	return Header{
		Description:         []string{"ViewDefinition [CoordinationView]"},
		ImplementationLevel: "2;1",
		Author:              []string{""},
		Organization:        []string{""},
		PreprocessorVersion: "stepdoc " + ir.EngineVersion,
		OriginatingSystem:   "stepdoc " + ir.EngineVersion,
	}
}

func (h Header) write(b *strings.Builder, schema string) {
	schemas := h.Schemas
	if len(schemas) == 0 {
		schemas = []string{schema}
	}

	b.WriteString("HEADER;\n")
	fmt.Fprintf(b, "FILE_DESCRIPTION(%s,%s);\n", stringList(h.Description), quote(h.ImplementationLevel))
	fmt.Fprintf(b, "FILE_NAME(%s,%s,%s,%s,%s,%s,%s);\n",
		quote(h.Name),
		quote(h.TimeStamp),
		stringList(h.Author),
		stringList(h.Organization),
		quote(h.PreprocessorVersion),
		quote(h.OriginatingSystem),
		quote(h.Authorization),
	)
	fmt.Fprintf(b, "FILE_SCHEMA(%s);\n", stringList(schemas))
	b.WriteString("ENDSEC;\n")
}

func stringList(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// readHeader extracts the known header entities. Unknown header entities are
// ignored.
func readHeader(entities []instance) (Header, error) {
	var h Header
	for _, inst := range entities {
		var err error
		switch strings.ToUpper(inst.typ) {
		case "FILE_DESCRIPTION":
			err = headerFields(inst, &h.Description, &h.ImplementationLevel)
		case "FILE_NAME":
			err = headerFields(inst, &h.Name, &h.TimeStamp, &h.Author, &h.Organization,
				&h.PreprocessorVersion, &h.OriginatingSystem, &h.Authorization)
		case "FILE_SCHEMA":
			err = headerFields(inst, &h.Schemas)
		}
		if err != nil {
			return h, err
		}
	}
	return h, nil
}

// headerFields assigns the parameters of a header entity to *string or
// *[]string targets in order. Unset parameters leave the target untouched.
func headerFields(inst instance, targets ...any) error {
	if len(inst.params) != len(targets) {
		return syntaxErrorf(inst.line, inst.col, "%s takes %d parameters, got %d", inst.typ, len(targets), len(inst.params))
	}
	for i, p := range inst.params {
		if p.kind == paramNull || p.kind == paramDerived {
			continue
		}
		switch t := targets[i].(type) {
		case *string:
			if p.kind != paramString {
				return syntaxErrorf(p.line, p.col, "%s parameter %d must be a string", inst.typ, i+1)
			}
			*t = p.text
		case *[]string:
			if p.kind != paramList {
				return syntaxErrorf(p.line, p.col, "%s parameter %d must be a list of strings", inst.typ, i+1)
			}
			list := make([]string, 0, len(p.list))
			for _, elem := range p.list {
				if elem.kind != paramString {
					return syntaxErrorf(elem.line, elem.col, "%s parameter %d must be a list of strings", inst.typ, i+1)
				}
				list = append(list, elem.text)
			}
			*t = list
		}
	}
	return nil
}
