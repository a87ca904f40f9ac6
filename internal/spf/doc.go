// Package spf reads and writes documents in the ISO 10303-21 clear text
// encoding (STEP physical file).
//
// A file has a HEADER section with FILE_DESCRIPTION, FILE_NAME and
// FILE_SCHEMA, and one DATA section of instance lines:
//
//	#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOH',$,'Wall',$,$,$,$,$,.SOLIDWALL.);
//
// Parameters are bound to ir.Value using the attribute kinds of the schema
// named by FILE_SCHEMA, which is what tells an empty list of references from
// an empty aggregate. Strings are written as stored and non-ASCII text uses
// the \X2\ hex encoding.
//
// Unmarshal(Marshal(doc)) preserves identities, types and values exactly.
package spf
