// Package metrics exposes Prometheus counters for document activity.
//
// The counters are process-global and registered with the default registry
// through promauto, so every Document in the process feeds the same series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeDiscarded = "discarded"
)

// Cascade fix-up modes.
const (
	CascadeImmediate = "immediate"
	CascadeBatched   = "batched"
)

// Replay directions.
const (
	DirectionUndo = "undo"
	DirectionRedo = "redo"
)

var (
	// EntitiesCreated counts created and imported entities, labeled by type.
	EntitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepdoc_entities_created_total",
			Help: "Total number of entities created or imported",
		},
		[]string{"type"},
	)

	// EntitiesRemoved counts removed entities, labeled by type.
	EntitiesRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepdoc_entities_removed_total",
			Help: "Total number of entities removed",
		},
		[]string{"type"},
	)

	// AttributeWrites counts attribute assignments made by callers.
	AttributeWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stepdoc_attribute_writes_total",
			Help: "Total number of attribute assignments",
		},
	)

	// Transactions counts closed transactions by outcome.
	Transactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepdoc_transactions_total",
			Help: "Total number of closed transactions",
		},
		[]string{"outcome"},
	)

	// Replays counts undo and redo steps that replayed a transaction.
	Replays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepdoc_replays_total",
			Help: "Total number of undo and redo steps applied",
		},
		[]string{"direction"},
	)

	// CascadeFixups counts reference slots rewritten because their target was removed.
	CascadeFixups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepdoc_cascade_fixups_total",
			Help: "Total number of reference slots cleared by removal cascades",
		},
		[]string{"mode"},
	)
)
