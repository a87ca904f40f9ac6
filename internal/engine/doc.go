// Package engine implements the stepdoc document: an in-memory store of
// schema-typed entities with forward and inverse relationship indices and
// undo/redo over arbitrary groups of mutations.
//
// ARCHITECTURE:
//
// Single-Writer Document:
// A Document is mutated by one caller at a time and does no locking. Every
// mutation validates first and then updates the entity map, the type index,
// the inverse index and the unique-key index synchronously, so a failed call
// leaves the document unchanged.
//
// Mutation Flow:
//  1. CreateEntity / SetAttribute / Remove / Add validate their input
//  2. The entity map and indices are updated
//  3. If a transaction is open, an op record (createOp, setOp, removeOp) is
//     appended to it
//  4. EndTransaction pushes the transaction onto the bounded history
//  5. Undo / Redo replay op records in reverse / forward order
//
// Replays never validate, cascade or log. Each op record carries everything
// needed in both directions.
//
// Removal Cascade:
// Removing an entity clears every reference to it first, one logged setOp per
// (referrer, slot). In batch mode the clearing is deferred to Unbatch, which
// visits the removed identities in ascending order and rewrites each
// (referrer, slot) once.
//
// CRITICAL PATTERNS:
//
// Identity Allocation:
// Identities come from a monotonic Allocator and are never reused. Undo and
// redo re-attach the same *Entity, so handles and identities survive replay.
//
// Deterministic Ordering:
// Entities, type queries, inverse queries and fingerprints are ordered by
// identity. No map iteration order leaks into results.
package engine
