// Package harness runs YAML edit scripts against a document and checks the
// outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: remove_cascade
//	description: "Removing a wall clears the references to it"
//	guids: true
//	setup:
//	  - op: create
//	    type: IfcWall
//	    as: wall
//	    attrs: { Name: "Wall A" }
//	steps:
//	  - op: begin
//	  - op: remove
//	    entity: "@wall"
//	  - op: end
//	  - op: set
//	    entity: "@wall"
//	    attr: Name
//	    value: "gone"
//	    expect_error: NOT_FOUND
//	assertions:
//	  - type: missing
//	    entity: "@wall"
//	  - type: fingerprint_stable
//
// # Values
//
// YAML scalars map to strings, integers, reals and booleans. "@alias" is a
// reference to an entity bound with "as", and a list of aliases is a
// reference list. {enum: X}, {real: N} and {ref: N} select those kinds
// explicitly; null is unset; any other list is an aggregate.
//
// Entities in steps and assertions are named "@alias", "#id" or by GUID.
//
// # Assertion Types
//
//   - exists, missing: whether an entity is in the document
//   - attribute: one attribute value, compared after schema coercion
//   - history_len: the number of undoable transactions
//   - count, by_type: type index queries, optionally with subtypes
//   - inverse: the referrers of an entity, and optionally the total count
//   - traverse: the entities reachable from an entity, breadth first
//   - fingerprint_stable: undo then redo leaves the fingerprint unchanged
//
// # Deterministic Testing
//
// Every scenario runs in a fresh document. GUIDs, when requested, come from a
// sequence generator, so the final document text is stable and can be
// compared against golden files with RunWithGolden.
package harness
