package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(Transactions.WithLabelValues(OutcomeDiscarded))
	Transactions.WithLabelValues(OutcomeDiscarded).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Transactions.WithLabelValues(OutcomeDiscarded)))

	before = testutil.ToFloat64(AttributeWrites)
	AttributeWrites.Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(AttributeWrites))
}

func TestCounterNames(t *testing.T) {
	assert.Equal(t, 1, testutil.CollectAndCount(AttributeWrites, "stepdoc_attribute_writes_total"))

	CascadeFixups.WithLabelValues(CascadeBatched).Add(0)
	CascadeFixups.WithLabelValues(CascadeImmediate).Add(0)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(CascadeFixups, "stepdoc_cascade_fixups_total"), 2)
}
