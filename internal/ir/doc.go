// Package ir provides the canonical value representation for stepdoc entities.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal. This keeps attribute values the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Attribute values are a sealed variant (Value); no reflection on Go structs
//   - Identities are positive int64 values allocated by the engine, never reused
//   - Canonical JSON sorts object keys by UTF-16 code units and NFC-normalizes strings
//   - Hashes use SHA-256 with domain separation
package ir
