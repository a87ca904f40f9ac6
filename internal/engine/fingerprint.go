package engine

import (
	"fmt"

	"github.com/roach88/stepdoc/internal/ir"
)

// Fingerprint hashes the observable state of the document: the schema name,
// every entity's identity, type and values, and every inverse edge with its
// multiplicity. Canonical JSON NFC normalizes text, which loses nothing
// because stored strings are already in that form (see schema.Kind.Coerce).
// The transaction log and the allocator's high-water mark are not part of it.
func (d *Document) Fingerprint() (string, error) {
	entities := make([]any, 0, d.entities.Len())
	d.entities.Scan(func(id ir.ID, e *Entity) bool {
		entities = append(entities, ir.Object{
			"id":     id,
			"type":   e.typ,
			"values": e.values,
		})
		return true
	})

	inverse := d.inverse.snapshot()
	if inverse == nil {
		inverse = []any{}
	}

	hash, err := ir.DocumentHash(ir.Object{
		"schema":   d.table.Name(),
		"entities": entities,
		"inverse":  inverse,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hash, nil
}
