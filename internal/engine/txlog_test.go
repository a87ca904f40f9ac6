package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/ir"
)

func TestTransaction_NothingHappensWithoutTransaction(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall")

	require.NoError(t, d.Undo())
	assert.True(t, wall.Attached())
	assert.Equal(t, 1, d.Len())
}

func TestTransaction_UndoRedoCreation(t *testing.T) {
	d := newTestDocument(t)
	unchanged := mustCreate(t, d, "IfcWall")

	require.NoError(t, d.BeginTransaction())
	wall := mustCreate(t, d, "IfcWall")
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	assert.True(t, unchanged.Attached())
	_, err := d.ByID(2)
	assert.True(t, IsNotFound(err))

	require.NoError(t, d.Redo())
	got, err := d.ByID(2)
	require.NoError(t, err)
	assert.Same(t, wall, got, "redo restores the same entity and identity")
	assertConsistent(t, d)
}

func TestTransaction_UndoRedoEditing(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("Name", "foo"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, wall.Set("Name", "bar"))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	v, _ := wall.Get("Name")
	assert.Equal(t, ir.String("foo"), v)

	require.NoError(t, d.Redo())
	v, _ = wall.Get("Name")
	assert.Equal(t, ir.String("bar"), v)
}

func TestTransaction_UndoRedoDeletion(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	got, err := d.ByID(1)
	require.NoError(t, err)
	assert.Same(t, wall, got)
	got, err = d.ByGUID("id")
	require.NoError(t, err)
	assert.Same(t, wall, got)

	require.NoError(t, d.Redo())
	_, err = d.ByID(1)
	assert.True(t, IsNotFound(err))
	assertConsistent(t, d)
}

func TestTransaction_UndoRedoDeletionWithInverse(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"))
	rel := mustCreate(t, d, "IfcRelAggregates")
	require.NoError(t, rel.Set("RelatingObject", wall))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	got, err := rel.Ref("RelatingObject")
	require.NoError(t, err)
	assert.Same(t, wall, got)
	assert.Equal(t, []*Entity{rel}, mustInverse(t, d, wall))

	require.NoError(t, d.Redo())
	got, err = rel.Ref("RelatingObject")
	require.NoError(t, err)
	assert.Nil(t, got)
	assertConsistent(t, d)
}

func TestTransaction_UndoRedoDeletionWithAggregatedInverse(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"))
	rel := mustCreate(t, d, "IfcRelAggregates")
	require.NoError(t, rel.Set("RelatedObjects", []*Entity{wall}))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	related, err := rel.Refs("RelatedObjects")
	require.NoError(t, err)
	assert.Equal(t, []*Entity{wall}, related)

	require.NoError(t, d.Redo())
	related, err = rel.Refs("RelatedObjects")
	require.NoError(t, err)
	assert.Empty(t, related)
	assertConsistent(t, d)
}

func TestTransaction_EditingInvalidDefaultValues(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall")

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, wall.Set("GlobalId", "id"))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	v, _ := wall.Get("GlobalId")
	assert.Equal(t, ir.Null{}, v)
	_, err := d.ByGUID("id")
	assert.True(t, IsNotFound(err))
}

func TestTransaction_SetHistorySize(t *testing.T) {
	d := newTestDocument(t)
	require.NoError(t, d.SetHistorySize(2))

	for i := 0; i < 3; i++ {
		require.NoError(t, d.BeginTransaction())
		require.NoError(t, d.EndTransaction())
	}
	assert.Equal(t, 2, d.HistoryLen())

	require.NoError(t, d.SetHistorySize(1))
	assert.Equal(t, 1, d.HistoryLen())
	assert.Equal(t, 3, d.History()[0].Seq, "the oldest entries are evicted first")

	require.NoError(t, d.SetHistorySize(0))
	assert.Equal(t, 0, d.HistoryLen())
	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.EndTransaction())
	assert.Equal(t, 0, d.HistoryLen(), "a zero bound keeps nothing")

	assert.True(t, IsIllegalState(d.SetHistorySize(-1)))
}

func TestTransaction_EvictedTransactionsCannotBeUndone(t *testing.T) {
	d := newTestDocument(t, WithHistorySize(1))

	require.NoError(t, d.BeginTransaction())
	first := mustCreate(t, d, "IfcWall")
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.BeginTransaction())
	second := mustCreate(t, d, "IfcWall")
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo())
	require.NoError(t, d.Undo())
	assert.True(t, first.Attached())
	assert.False(t, second.Attached())
}

func TestTransaction_Discard(t *testing.T) {
	d := newTestDocument(t)

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.DiscardTransaction())
	require.NoError(t, d.EndTransaction())

	assert.Equal(t, 0, d.HistoryLen())
}

func TestTransaction_DiscardRollsBack(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"), Attr("Name", "foo"))
	rel := mustCreate(t, d, "IfcRelAggregates", Attr("RelatedObjects", []*Entity{wall}))
	before := mustFingerprint(t, d)

	require.NoError(t, d.BeginTransaction())
	mustCreate(t, d, "IfcSlab")
	require.NoError(t, wall.Set("Name", "bar"))
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.DiscardTransaction())

	assert.Equal(t, before, mustFingerprint(t, d))
	assert.Equal(t, 0, d.HistoryLen())
	assert.False(t, d.InTransaction())
	related, _ := rel.Refs("RelatedObjects")
	assert.Equal(t, []*Entity{wall}, related)
	assertConsistent(t, d)
}

func TestTransaction_RedoWithEmptySlot(t *testing.T) {
	d := newTestDocument(t)
	require.NoError(t, d.Redo())
	assert.False(t, d.CanRedo())
}

func TestTransaction_IllegalStates(t *testing.T) {
	d := newTestDocument(t)

	require.NoError(t, d.BeginTransaction())
	assert.True(t, IsIllegalState(d.BeginTransaction()), "nested begin")
	assert.True(t, IsIllegalState(d.Undo()), "undo while recording")
	assert.True(t, IsIllegalState(d.Redo()), "redo while recording")
	assert.False(t, d.CanUndo())
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.EndTransaction(), "end while idle is a no-op")
	require.NoError(t, d.DiscardTransaction(), "discard while idle is a no-op")
	assert.Equal(t, 1, d.HistoryLen())
}

func TestTransaction_BeginClearsRedo(t *testing.T) {
	d := newTestDocument(t)

	require.NoError(t, d.BeginTransaction())
	mustCreate(t, d, "IfcWall")
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Undo())
	assert.True(t, d.CanRedo())

	require.NoError(t, d.BeginTransaction())
	assert.False(t, d.CanRedo())
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Redo())
	assert.Equal(t, 0, d.Len(), "redo after a new transaction does nothing")
}

func TestTransaction_UndoRedoSingleSlot(t *testing.T) {
	d := newTestDocument(t)

	for _, name := range []string{"a", "b"} {
		require.NoError(t, d.BeginTransaction())
		mustCreate(t, d, "IfcWall", Attr("Name", name))
		require.NoError(t, d.EndTransaction())
	}

	require.NoError(t, d.Undo())
	require.NoError(t, d.Undo())
	assert.Equal(t, 0, d.Len())

	require.NoError(t, d.Redo())
	assert.Equal(t, 1, d.Len())
	require.NoError(t, d.Redo())
	assert.Equal(t, 1, d.Len(), "only the most recent undo is redoable")
}

func TestTransaction_UndoRedoRoundTrip(t *testing.T) {
	d := newTestDocument(t)
	owner := mustCreate(t, d, "IfcOwnerHistory")
	w1 := mustCreate(t, d, "IfcWall", Attr("GlobalId", "w1"), Attr("OwnerHistory", owner))
	w2 := mustCreate(t, d, "IfcWall", Attr("GlobalId", "w2"))
	rel := mustCreate(t, d, "IfcRelAggregates", Attr("RelatingObject", w1), Attr("RelatedObjects", []*Entity{w1, w2, w1}))
	initial := mustFingerprint(t, d)

	require.NoError(t, d.BeginTransaction())
	slab := mustCreate(t, d, "IfcSlab", Attr("GlobalId", "s1"))
	require.NoError(t, rel.Set("RelatedObjects", []*Entity{w1, slab}))
	require.NoError(t, w2.Set("GlobalId", "w2-renamed"))
	require.NoError(t, d.Remove(w1))
	require.NoError(t, d.Remove(owner))
	require.NoError(t, d.EndTransaction())
	applied := mustFingerprint(t, d)
	assertConsistent(t, d)

	require.NoError(t, d.Undo())
	assert.Equal(t, initial, mustFingerprint(t, d))
	assertConsistent(t, d)

	require.NoError(t, d.Redo())
	assert.Equal(t, applied, mustFingerprint(t, d))
	assertConsistent(t, d)

	require.NoError(t, d.Undo())
	assert.Equal(t, initial, mustFingerprint(t, d))
}

func TestTransaction_History(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "id"))
	rel := mustCreate(t, d, "IfcRelAggregates", Attr("RelatingObject", wall))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.EndTransaction())

	history := d.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Seq)
	assert.Equal(t, []string{
		"set " + rel.ID().String() + ".RelatingObject #1 -> $",
		"remove #1 IfcWall",
	}, history[0].Ops, "cascaded clears are logged ahead of the removal")
}

func TestTransaction_UndoRefusesTakenUniqueKey(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(wall))
	require.NoError(t, d.EndTransaction())

	other := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))
	before := mustFingerprint(t, d)

	err := d.Undo()
	assert.Equal(t, CodeDuplicate, CodeOf(err))
	assert.False(t, wall.Attached())
	assert.Equal(t, 1, d.HistoryLen(), "the transaction stays in history")
	assert.False(t, d.CanRedo())
	assert.Equal(t, before, mustFingerprint(t, d))

	got, err := d.ByGUID("g")
	require.NoError(t, err)
	assert.Same(t, other, got)
	assertConsistent(t, d)

	require.NoError(t, d.Remove(other))
	require.NoError(t, d.Undo())
	got, err = d.ByGUID("g")
	require.NoError(t, err)
	assert.Same(t, wall, got, "undo succeeds once the key is free again")
	assertConsistent(t, d)
}

func TestTransaction_RedoRefusesTakenUniqueKey(t *testing.T) {
	d := newTestDocument(t)

	require.NoError(t, d.BeginTransaction())
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Undo())

	other := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))
	require.True(t, d.CanRedo(), "unrecorded edits keep the redo slot")
	before := mustFingerprint(t, d)

	err := d.Redo()
	assert.Equal(t, CodeDuplicate, CodeOf(err))
	assert.False(t, wall.Attached())
	assert.True(t, d.CanRedo())
	assert.Equal(t, 0, d.HistoryLen())
	assert.Equal(t, before, mustFingerprint(t, d))
	assertConsistent(t, d)

	require.NoError(t, other.Set("GlobalId", "h"))
	require.NoError(t, d.Redo())
	got, err := d.ByGUID("g")
	require.NoError(t, err)
	assert.Same(t, wall, got)
	assertConsistent(t, d)
}

func TestTransaction_RedoRefusesTakenKeyFromEdit(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "a"))
	other := mustCreate(t, d, "IfcWall", Attr("GlobalId", "b"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, wall.Set("GlobalId", "g"))
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Undo())

	require.NoError(t, other.Set("GlobalId", "g"))
	err := d.Redo()
	assert.Equal(t, CodeDuplicate, CodeOf(err))
	v, _ := wall.Get("GlobalId")
	assert.Equal(t, ir.String("a"), v)
	assertConsistent(t, d)
}

func TestTransaction_ReplayMovesKeyWithinTransaction(t *testing.T) {
	d := newTestDocument(t)
	wall := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, wall.Set("GlobalId", "h"))
	other := mustCreate(t, d, "IfcWall", Attr("GlobalId", "g"))
	require.NoError(t, d.EndTransaction())

	require.NoError(t, d.Undo(), "the key is released by the same replay before it is reclaimed")
	assert.False(t, other.Attached())
	require.NoError(t, d.Redo())
	got, err := d.ByGUID("g")
	require.NoError(t, err)
	assert.Same(t, other, got)
	assertConsistent(t, d)
}
