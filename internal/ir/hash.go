package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainEntity   = "stepdoc/entity/v1"
	DomainDocument = "stepdoc/document/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntityHash computes the content hash of a single entity's observable state.
// Two entities hash equal iff they have the same identity, type and values.
func EntityHash(id ID, typeName string, values []Value) (string, error) {
	obj := Object{
		"id":     id,
		"type":   typeName,
		"values": values,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntityHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEntity, canonical), nil
}

// DocumentHash computes the fingerprint of a whole document snapshot.
// The caller supplies the snapshot as a canonical Object; ordering of any
// slices inside it must already be deterministic.
func DocumentHash(snapshot Object) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainDocument, canonical), nil
}
