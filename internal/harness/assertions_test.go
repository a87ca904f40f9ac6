package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/testutil"
)

func intPtr(n int) *int { return &n }

// assertionFixture builds host (#1) and part (#2) walls aggregated by rel (#3)
// with one committed transaction, plus a removed wall "gone" (#4).
func assertionFixture(t *testing.T) *AssertionContext {
	t.Helper()
	doc := engine.New(testutil.IFC())

	require.NoError(t, doc.BeginTransaction())
	host, err := doc.CreateEntity("IfcWall", engine.Attr("GlobalId", "host"), engine.Attr("Name", "Host"))
	require.NoError(t, err)
	part, err := doc.CreateEntity("IfcWall", engine.Attr("GlobalId", "part"))
	require.NoError(t, err)
	rel, err := doc.CreateEntity("IfcRelAggregates",
		engine.Attr("GlobalId", "rel"),
		engine.Attr("RelatingObject", host),
		engine.Attr("RelatedObjects", []*engine.Entity{part, host}),
	)
	require.NoError(t, err)
	gone, err := doc.CreateEntity("IfcWall", engine.Attr("GlobalId", "gone"))
	require.NoError(t, err)
	require.NoError(t, doc.Remove(gone))
	require.NoError(t, doc.EndTransaction())

	return &AssertionContext{
		Document: doc,
		Aliases: map[string]*engine.Entity{
			"host": host,
			"part": part,
			"rel":  rel,
			"gone": gone,
		},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
	}{
		{"exists by alias", Assertion{Type: AssertExists, Entity: "@host"}},
		{"exists by identity", Assertion{Type: AssertExists, Entity: "#3"}},
		{"exists by guid", Assertion{Type: AssertExists, Entity: "part"}},
		{"missing removed alias", Assertion{Type: AssertMissing, Entity: "@gone"}},
		{"missing identity", Assertion{Type: AssertMissing, Entity: "#4"}},
		{"attribute string", Assertion{Type: AssertAttribute, Entity: "@host", Attr: "Name", Value: "Host"}},
		{"attribute null", Assertion{Type: AssertAttribute, Entity: "@part", Attr: "Name"}},
		{"attribute ref", Assertion{Type: AssertAttribute, Entity: "@rel", Attr: "RelatingObject", Value: "@host"}},
		{"attribute reflist", Assertion{Type: AssertAttribute, Entity: "@rel", Attr: "RelatedObjects", Value: []any{"@part", "@host"}}},
		{"history length", Assertion{Type: AssertHistoryLen, Count: 1}},
		{"count all", Assertion{Type: AssertCount, Count: 3}},
		{"count type", Assertion{Type: AssertCount, EntityType: "IfcWall", Count: 2}},
		{"count abstract type", Assertion{Type: AssertCount, EntityType: "IfcRoot", Count: 0}},
		{"count with subtypes", Assertion{Type: AssertCount, EntityType: "IfcRoot", Subtypes: true, Count: 3}},
		{"by type", Assertion{Type: AssertByType, EntityType: "IfcWall", Entities: []string{"@host", "@part"}}},
		{"by type empty", Assertion{Type: AssertByType, EntityType: "IfcPerson"}},
		{"inverse", Assertion{Type: AssertInverse, Entity: "@host", Entities: []string{"@rel"}, Total: intPtr(2)}},
		{"inverse none", Assertion{Type: AssertInverse, Entity: "@rel", Total: intPtr(0)}},
		{"traverse", Assertion{Type: AssertTraverse, Entity: "@rel", Entities: []string{"@rel", "@host", "@part"}}},
		{"traverse zero levels", Assertion{Type: AssertTraverse, Entity: "@rel", Levels: intPtr(0), Entities: []string{"@rel"}}},
		{"fingerprint stable", Assertion{Type: AssertFingerprintStable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions([]Assertion{tt.assertion}, assertionFixture(t))
			assert.Empty(t, errs)
		})
	}
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"exists removed", Assertion{Type: AssertExists, Entity: "@gone"}, "not found"},
		{"missing present", Assertion{Type: AssertMissing, Entity: "@host"}, "absent"},
		{"attribute differs", Assertion{Type: AssertAttribute, Entity: "@host", Attr: "Name", Value: "Other"}, "#1.Name = 'Host'"},
		{"attribute unknown", Assertion{Type: AssertAttribute, Entity: "@host", Attr: "Colour", Value: "red"}, "has no attribute Colour"},
		{"attribute wrong kind", Assertion{Type: AssertAttribute, Entity: "@host", Attr: "Name", Value: 3}, "does not fit"},
		{"attribute of removed", Assertion{Type: AssertAttribute, Entity: "@gone", Attr: "Name"}, "not found"},
		{"history length", Assertion{Type: AssertHistoryLen, Count: 2}, "2 transactions in history"},
		{"count", Assertion{Type: AssertCount, EntityType: "IfcWall", Count: 5}, "5 IfcWall entities"},
		{"count unknown type", Assertion{Type: AssertCount, EntityType: "IfcNothing", Count: 0}, "unknown entity type"},
		{"by type order", Assertion{Type: AssertByType, EntityType: "IfcWall", Entities: []string{"@part", "@host"}}, "[#2,#1]"},
		{"inverse entities", Assertion{Type: AssertInverse, Entity: "@part", Entities: []string{}}, "[#3]"},
		{"inverse total", Assertion{Type: AssertInverse, Entity: "@host", Entities: []string{"@rel"}, Total: intPtr(1)}, "1 references to #1"},
		{"traverse", Assertion{Type: AssertTraverse, Entity: "@rel", Entities: []string{"@rel"}}, "[#3,#1,#2]"},
		{"unknown alias", Assertion{Type: AssertByType, EntityType: "IfcWall", Entities: []string{"@who"}}, `unknown alias "who"`},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions([]Assertion{tt.assertion}, assertionFixture(t))
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]: ")
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_FingerprintStableRestoresState(t *testing.T) {
	actx := assertionFixture(t)
	before, err := actx.Document.Fingerprint()
	require.NoError(t, err)

	errs := EvaluateAssertions([]Assertion{{Type: AssertFingerprintStable}}, actx)
	assert.Empty(t, errs)

	after, err := actx.Document.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, actx.Document.HistoryLen())
}

func TestEvaluateAssertions_FingerprintStableInTransaction(t *testing.T) {
	actx := assertionFixture(t)
	require.NoError(t, actx.Document.BeginTransaction())

	errs := EvaluateAssertions([]Assertion{{Type: AssertFingerprintStable}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "undo:")
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{Type: AssertCount, Expected: "3 entities", Actual: "2"}
	assert.Equal(t, "Assertion failed: count\n  Expected: 3 entities\n  Actual: 2", err.Error())
}

func TestExpectedValue(t *testing.T) {
	gone := assertionFixture(t).Aliases["gone"]
	aliases := map[string]*engine.Entity{"gone": gone}

	v, err := expectedValue("@gone", aliases)
	require.NoError(t, err)
	assert.Equal(t, ir.Ref(4), v)

	v, err = expectedValue([]any{"@gone", "@gone"}, aliases)
	require.NoError(t, err)
	assert.Equal(t, ir.RefList{4, 4}, v)

	v, err = expectedValue("plain", aliases)
	require.NoError(t, err)
	assert.Equal(t, ir.String("plain"), v)
}
