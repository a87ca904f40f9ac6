package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
)

// ErrBatchOpen is returned when a document with deferred removals is
// exported. Its references may still name removed entities.
var ErrBatchOpen = errors.New("sqlstore: document is in batch mode")

// WriteDocument exports doc in a single transaction and returns the row id
// of its documents entry.
//
// Uses ON CONFLICT(fingerprint) DO NOTHING for idempotency: a document whose
// fingerprint is already stored is not written again and the existing row id
// is returned.
func (s *Store) WriteDocument(ctx context.Context, doc *engine.Document) (int64, error) {
	if doc.InBatch() {
		return 0, ErrBatchOpen
	}

	fingerprint, err := doc.Fingerprint()
	if err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write document: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents
		(fingerprint, schema_name, entity_count, max_id, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		fingerprint,
		doc.Schema().Name(),
		doc.Len(),
		int64(doc.MaxID()),
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}
	if inserted == 0 {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE fingerprint = ?`, fingerprint).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("write document: existing row: %w", err)
		}
		return id, tx.Commit()
	}

	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}

	if err := writeEntities(ctx, tx, docID, doc); err != nil {
		return 0, fmt.Errorf("write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write document: commit: %w", err)
	}
	return docID, nil
}

func writeEntities(ctx context.Context, tx *sql.Tx, docID int64, doc *engine.Document) error {
	entityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (document_id, id, type, hash) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare entities: %w", err)
	}
	defer entityStmt.Close()

	attrStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attributes (document_id, entity_id, slot, name, kind, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare attributes: %w", err)
	}
	defer attrStmt.Close()

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO refs (document_id, from_id, slot, position, to_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare refs: %w", err)
	}
	defer refStmt.Close()

	table := doc.Schema()
	for _, e := range doc.Entities() {
		values := e.Values()
		hash, err := ir.EntityHash(e.ID(), e.Type(), values)
		if err != nil {
			return fmt.Errorf("entity %s: %w", e.ID(), err)
		}
		if _, err := entityStmt.ExecContext(ctx, docID, int64(e.ID()), e.Type(), hash); err != nil {
			return fmt.Errorf("entity %s: %w", e.ID(), err)
		}

		attrs := table.Attributes(e.Type())
		for slot, v := range values {
			value, err := marshalValue(v)
			if err != nil {
				return fmt.Errorf("entity %s slot %d: %w", e.ID(), slot, err)
			}
			_, err = attrStmt.ExecContext(ctx, docID, int64(e.ID()), slot, attrs[slot].Name, attrs[slot].Kind.String(), value)
			if err != nil {
				return fmt.Errorf("entity %s.%s: %w", e.ID(), attrs[slot].Name, err)
			}

			for pos, target := range ir.Refs(v) {
				if _, err := refStmt.ExecContext(ctx, docID, int64(e.ID()), slot, pos, int64(target)); err != nil {
					return fmt.Errorf("entity %s.%s: ref %d: %w", e.ID(), attrs[slot].Name, pos, err)
				}
			}
		}
	}
	return nil
}

// marshalValue converts a value to canonical JSON TEXT for storage.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}
