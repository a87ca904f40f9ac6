package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("sqlstore: not found")

// DocumentInfo describes one exported document.
type DocumentInfo struct {
	ID            int64
	Fingerprint   string
	Schema        string
	Entities      int
	MaxID         ir.ID
	EngineVersion string
	IRVersion     string
}

// Documents returns every exported document in export order.
// Returns an empty slice (not nil) for an empty database.
func (s *Store) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, schema_name, entity_count, max_id, engine_version, ir_version
		FROM documents
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentInfo{}
	for rows.Next() {
		var info DocumentInfo
		var maxID int64
		if err := rows.Scan(&info.ID, &info.Fingerprint, &info.Schema, &info.Entities,
			&maxID, &info.EngineVersion, &info.IRVersion); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.MaxID = ir.ID(maxID)
		docs = append(docs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// CountByType returns the number of entities per exact type.
func (s *Store) CountByType(ctx context.Context, docID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*)
		FROM entities
		WHERE document_id = ?
		GROUP BY type
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query type counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type counts: %w", err)
	}
	return counts, nil
}

// EntitiesOfType returns the identities of the entities of exactly typeName,
// in ascending order.
func (s *Store) EntitiesOfType(ctx context.Context, docID int64, typeName string) ([]ir.ID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM entities
		WHERE document_id = ? AND type = ?
		ORDER BY id ASC
	`, docID, typeName)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	ids := []ir.ID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		ids = append(ids, ir.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return ids, nil
}

// Referrers returns the (referrer, slot) pairs that reference target, ordered
// by referrer then slot. A list slot that repeats target appears once, as in
// engine.Document.InverseEdges.
func (s *Store) Referrers(ctx context.Context, docID int64, target ir.ID) ([]engine.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT from_id, slot
		FROM refs
		WHERE document_id = ? AND to_id = ?
		ORDER BY from_id ASC, slot ASC
	`, docID, int64(target))
	if err != nil {
		return nil, fmt.Errorf("query referrers: %w", err)
	}
	defer rows.Close()

	edges := []engine.Edge{}
	for rows.Next() {
		var from int64
		var slot int
		if err := rows.Scan(&from, &slot); err != nil {
			return nil, fmt.Errorf("scan referrer: %w", err)
		}
		edges = append(edges, engine.Edge{From: ir.ID(from), Slot: slot})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referrers: %w", err)
	}
	return edges, nil
}

// Attribute returns the canonical JSON of one attribute value.
// Returns ErrNotFound if the entity or attribute was not exported.
func (s *Store) Attribute(ctx context.Context, docID int64, id ir.ID, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM attributes
		WHERE document_id = ? AND entity_id = ? AND name = ?
	`, docID, int64(id), name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s.%s", ErrNotFound, id, name)
	}
	if err != nil {
		return "", fmt.Errorf("query attribute: %w", err)
	}
	return value, nil
}
