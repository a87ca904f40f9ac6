// Package sqlstore exports documents into SQLite for ad-hoc analysis.
//
// The export is one-way: nothing in this module reads a document back from
// the database. Each exported document gets a row in documents keyed by its
// fingerprint, so exporting an unchanged document again is a no-op.
//
// # Tables
//
//   - documents: fingerprint, schema name, entity count and version stamps
//   - entities: identity, canonical type and entity content hash
//   - attributes: one row per slot with the value as canonical JSON
//   - refs: one row per forward reference, list entries by position
//
// The refs table is indexed by target, so inverse queries are plain SQL:
//
//	SELECT from_id, slot FROM refs WHERE document_id = ? AND to_id = ?
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package sqlstore
