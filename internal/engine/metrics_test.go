package engine

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/metrics"
)

func counterDelta(c prometheus.Collector) func() float64 {
	start := promtest.ToFloat64(c)
	return func() float64 {
		return promtest.ToFloat64(c) - start
	}
}

func TestDocument_Metrics(t *testing.T) {
	created := counterDelta(metrics.EntitiesCreated.WithLabelValues("IfcSlab"))
	removed := counterDelta(metrics.EntitiesRemoved.WithLabelValues("IfcSlab"))
	writes := counterDelta(metrics.AttributeWrites)
	committed := counterDelta(metrics.Transactions.WithLabelValues(metrics.OutcomeCommitted))
	discarded := counterDelta(metrics.Transactions.WithLabelValues(metrics.OutcomeDiscarded))
	undos := counterDelta(metrics.Replays.WithLabelValues(metrics.DirectionUndo))
	redos := counterDelta(metrics.Replays.WithLabelValues(metrics.DirectionRedo))
	immediate := counterDelta(metrics.CascadeFixups.WithLabelValues(metrics.CascadeImmediate))
	batched := counterDelta(metrics.CascadeFixups.WithLabelValues(metrics.CascadeBatched))

	d := newTestDocument(t)
	s1 := mustCreate(t, d, "IfcSlab")
	s2 := mustCreate(t, d, "IfcSlab")
	rel := mustCreate(t, d, "IfcRelAggregates", Attr("RelatedObjects", []*Entity{s1, s2}))
	require.NoError(t, rel.Set("Name", "r"))

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.Remove(s1))
	require.NoError(t, d.EndTransaction())
	require.NoError(t, d.Undo())
	require.NoError(t, d.Redo())

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.DiscardTransaction())

	require.NoError(t, d.Batch())
	require.NoError(t, d.Remove(s2))
	require.NoError(t, d.Unbatch())

	assert.Equal(t, 2.0, created())
	assert.Equal(t, 2.0, removed())
	assert.Equal(t, 1.0, writes(), "cascade rewrites and replays are not attribute writes")
	assert.Equal(t, 1.0, committed())
	assert.Equal(t, 1.0, discarded())
	assert.Equal(t, 1.0, undos())
	assert.Equal(t, 1.0, redos())
	assert.Equal(t, 1.0, immediate())
	assert.Equal(t, 1.0, batched())
}
