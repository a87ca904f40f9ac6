// Package schema describes the read-only type table a document is bound to.
//
// A Table maps entity type names to their supertype chain and to the ordered,
// flattened list of attribute slots (inherited attributes first). The engine
// never inspects Go types to find attributes; every access is a checked slot
// lookup against the Table.
//
// Tables are built once, either in Go with a Builder or from CUE through the
// compiler package, and are immutable afterwards. Type and attribute names
// resolve case-insensitively so upper-case names from STEP files bind to the
// canonical spelling.
package schema
