package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/ir"
)

func TestDocument_Fingerprint_Deterministic(t *testing.T) {
	build := func() *Document {
		d := newTestDocument(t)
		owner := mustCreate(t, d, "IfcOwnerHistory")
		mustCreate(t, d, "IfcWall", Attr("GlobalId", "w"), Attr("OwnerHistory", owner))
		return d
	}

	fp1 := mustFingerprint(t, build())
	fp2 := mustFingerprint(t, build())
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestDocument_Fingerprint_Sensitive(t *testing.T) {
	d := newTestDocument(t)
	empty := mustFingerprint(t, d)

	wall := mustCreate(t, d, "IfcWall")
	created := mustFingerprint(t, d)
	assert.NotEqual(t, empty, created)

	require.NoError(t, wall.Set("Name", "x"))
	named := mustFingerprint(t, d)
	assert.NotEqual(t, created, named)

	require.NoError(t, wall.Set("Name", nil))
	assert.Equal(t, created, mustFingerprint(t, d), "restoring a value restores the fingerprint")
}

func TestDocument_Fingerprint_IgnoresHistory(t *testing.T) {
	d := newTestDocument(t)
	before := mustFingerprint(t, d)

	require.NoError(t, d.BeginTransaction())
	mustCreate(t, d, "IfcWall")
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Undo())

	assert.Equal(t, before, mustFingerprint(t, d))
}

func TestDocument_Fingerprint_TextStoredNormalized(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("Name", "e\u0301"))

	v, _ := wall.Get("Name")
	assert.Equal(t, ir.String("\u00e9"), v)

	e := newTestDocument(t)
	mustCreate(t, e, "IfcWall", Attr("Name", "\u00e9"))
	assert.Equal(t, mustFingerprint(t, d), mustFingerprint(t, e), "both spellings store the same value")
}
