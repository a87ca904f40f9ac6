package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDocument(t *testing.T, opts ...Option) *Document {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(testutil.IFC(), opts...)
}

func mustCreate(t *testing.T, d *Document, typeName string, seeds ...Seed) *Entity {
	t.Helper()
	e, err := d.CreateEntity(typeName, seeds...)
	require.NoError(t, err)
	return e
}

func mustFingerprint(t *testing.T, d *Document) string {
	t.Helper()
	fp, err := d.Fingerprint()
	require.NoError(t, err)
	return fp
}

func ids(es []*Entity) []ir.ID {
	out := make([]ir.ID, len(es))
	for i, e := range es {
		out[i] = e.ID()
	}
	return out
}

// assertConsistent recomputes every index from the entity values and
// compares it with the incrementally maintained one.
func assertConsistent(t *testing.T, d *Document) {
	t.Helper()

	want := newInverseIndex()
	wantGUIDs := make(map[string]ir.ID)
	wantTypes := make(map[string]int)
	for _, e := range d.Entities() {
		assert.Same(t, d, e.Document(), "%s should point at its document", e.ID())
		wantTypes[e.Type()]++
		for slot, v := range e.values {
			for _, target := range ir.Refs(v) {
				want.add(target, Edge{From: e.ID(), Slot: slot})
			}
		}
		if slot := d.table.UniqueSlot(e.Type()); slot >= 0 {
			if guid, ok := e.values[slot].(ir.String); ok {
				_, dup := wantGUIDs[string(guid)]
				assert.False(t, dup, "unique key %q held twice", string(guid))
				wantGUIDs[string(guid)] = e.ID()
			}
		}
	}

	assert.Equal(t, want.snapshot(), d.inverse.snapshot(), "inverse index out of step")
	assert.Equal(t, wantGUIDs, d.guids, "guid index out of step")
	assert.Equal(t, wantTypes, d.CountByType(), "type index out of step")
}

func TestDocument_New(t *testing.T) {
	d := newTestDocument(t)

	assert.Equal(t, "IFC4", d.Schema().Name())
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Entities())
	assert.Equal(t, ir.ID(0), d.MaxID())
	assert.Equal(t, DefaultHistorySize, d.HistorySize())
	assert.False(t, d.InTransaction())
	assert.False(t, d.InBatch())
}

func TestDocument_Options(t *testing.T) {
	t.Run("history size", func(t *testing.T) {
		d := newTestDocument(t, WithHistorySize(3))
		assert.Equal(t, 3, d.HistorySize())
	})

	t.Run("negative history size ignored", func(t *testing.T) {
		d := newTestDocument(t, WithHistorySize(-1))
		assert.Equal(t, DefaultHistorySize, d.HistorySize())
	})

	t.Run("nil logger ignored", func(t *testing.T) {
		d := New(testutil.IFC(), WithLogger(nil))
		assert.NotNil(t, d.logger)
	})

	t.Run("guid generator", func(t *testing.T) {
		d := newTestDocument(t, WithGUIDGenerator(testutil.NewFixedGUIDGenerator("g-1")))
		wall := mustCreate(t, d, "IfcWall")
		v, err := wall.Get("GlobalId")
		require.NoError(t, err)
		assert.Equal(t, ir.String("g-1"), v)
	})
}

func TestDocument_Entities_Ordered(t *testing.T) {
	d := newTestDocument(t)
	mustCreate(t, d, "IfcWall")
	mustCreate(t, d, "IfcSlab", WithID(10))
	mustCreate(t, d, "IfcPerson")

	assert.Equal(t, []ir.ID{1, 10, 11}, ids(d.Entities()))
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, ir.ID(11), d.MaxID())
}

func TestEntity_Accessors(t *testing.T) {
	d := newTestDocument(t)
	owner := mustCreate(t, d, "IfcOwnerHistory")
	wall := mustCreate(t, d, "IfcWall", Args("id", owner, "wall"))

	assert.Equal(t, ir.ID(2), wall.ID())
	assert.Equal(t, "IfcWall", wall.Type())
	assert.True(t, wall.Is("IfcWall"))
	assert.True(t, wall.Is("IfcElement"))
	assert.True(t, wall.Is("ifcroot"))
	assert.False(t, wall.Is("IfcSlab"))
	assert.Same(t, d, wall.Document())
	assert.True(t, wall.Attached())

	name, err := wall.Get("Name")
	require.NoError(t, err)
	assert.Equal(t, ir.String("wall"), name)

	at, err := wall.At(0)
	require.NoError(t, err)
	assert.Equal(t, ir.String("id"), at)

	_, err = wall.At(9)
	assert.True(t, IsSchemaError(err))

	_, err = wall.Get("Height")
	assert.True(t, IsSchemaError(err))

	ref, err := wall.Ref("OwnerHistory")
	require.NoError(t, err)
	assert.Same(t, owner, ref)

	unset, err := owner.Ref("OwningApplication")
	require.NoError(t, err)
	assert.Nil(t, unset)

	_, err = wall.Ref("Name")
	assert.True(t, IsSchemaError(err))

	vals := wall.Values()
	require.Len(t, vals, 9)
	vals[2] = ir.String("mutated")
	name, _ = wall.Get("Name")
	assert.Equal(t, ir.String("wall"), name, "Values must return a copy")
}

func TestEntity_Refs(t *testing.T) {
	d := newTestDocument(t)
	w1 := mustCreate(t, d, "IfcWall")
	w2 := mustCreate(t, d, "IfcWall")
	rel := mustCreate(t, d, "IfcRelAggregates", Attr("RelatedObjects", []*Entity{w2, w1}))

	got, err := rel.Refs("RelatedObjects")
	require.NoError(t, err)
	assert.Equal(t, []*Entity{w2, w1}, got)

	_, err = rel.Refs("RelatingObject")
	require.NoError(t, err)
}

func TestEntity_String(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"), Attr("PredefinedType", ir.Enum("SOLIDWALL")))

	assert.Equal(t, "#1=IfcWall('id',$,$,$,$,$,$,$,.SOLIDWALL.)", wall.String())
}

func TestEntity_Set(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall")

	require.NoError(t, wall.Set("Name", "foo"))
	v, _ := wall.Get("Name")
	assert.Equal(t, ir.String("foo"), v)

	require.NoError(t, d.Remove(wall))
	assert.False(t, wall.Attached())
	assert.Nil(t, wall.Document())
	assert.True(t, IsNotFound(wall.Set("Name", "bar")))
}
