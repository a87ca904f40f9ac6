package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUIDGenerator produces values for a type's unique-key attribute when the
// caller leaves it unset. Implemented by UUIDGUIDGenerator (production) and
// testutil.FixedGUIDGenerator (tests).
type GUIDGenerator interface {
	NewGUID() string
}

// guidAlphabet is the 64-character alphabet of IFC compressed GUIDs.
const guidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

// UUIDGUIDGenerator generates IFC GlobalIds from random (version 4) UUIDs.
//
// Uses github.com/google/uuid for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDGUIDGenerator is stateless and safe for concurrent use.
type UUIDGUIDGenerator struct{}

// NewGUID returns a 22-character compressed GUID.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGUIDGenerator) NewGUID() string {
	return CompressGUID(uuid.Must(uuid.NewRandom()))
}

// CompressGUID encodes a UUID in the 22-character IFC form: the first byte
// becomes two base-64 digits, then each following group of three bytes
// becomes four.
func CompressGUID(u uuid.UUID) string {
	var out [22]byte

	n := uint32(u[0])
	out[0] = guidAlphabet[n/64]
	out[1] = guidAlphabet[n%64]

	pos := 2
	for i := 1; i < 16; i += 3 {
		n = uint32(u[i])<<16 | uint32(u[i+1])<<8 | uint32(u[i+2])
		for j := 3; j >= 0; j-- {
			out[pos+j] = guidAlphabet[n%64]
			n /= 64
		}
		pos += 4
	}
	return string(out[:])
}

// ExpandGUID decodes a compressed IFC GUID back into a UUID.
func ExpandGUID(s string) (uuid.UUID, error) {
	var u uuid.UUID
	if len(s) != 22 {
		return u, fmt.Errorf("compressed guid must be 22 characters, got %d", len(s))
	}

	digits := make([]uint32, 22)
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(guidAlphabet, s[i])
		if d < 0 {
			return u, fmt.Errorf("invalid character %q in compressed guid", s[i])
		}
		digits[i] = uint32(d)
	}

	first := digits[0]*64 + digits[1]
	if first > 0xff {
		return u, fmt.Errorf("compressed guid %q out of range", s)
	}
	u[0] = byte(first)

	pos := 2
	for i := 1; i < 16; i += 3 {
		n := digits[pos]<<18 | digits[pos+1]<<12 | digits[pos+2]<<6 | digits[pos+3]
		u[i] = byte(n >> 16)
		u[i+1] = byte(n >> 8)
		u[i+2] = byte(n)
		pos += 4
	}
	return u, nil
}
