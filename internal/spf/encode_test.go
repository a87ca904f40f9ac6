package spf_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/spf"
	"github.com/roach88/stepdoc/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleDocument builds a document touching every value kind.
func sampleDocument(t *testing.T) *engine.Document {
	t.Helper()
	d := engine.New(testutil.IFC(), engine.WithLogger(quietLogger()))

	create := func(typ string, seeds ...engine.Seed) *engine.Entity {
		e, err := d.CreateEntity(typ, seeds...)
		require.NoError(t, err)
		return e
	}

	owner := create("IfcOwnerHistory",
		engine.Attr("ChangeAction", ir.Enum("ADDED")),
		engine.Attr("CreationDate", 1700000000),
	)
	wall := create("IfcWall",
		engine.Attr("GlobalId", "2O2Fr$t4X7Zf8NOew3FLOH"),
		engine.Attr("OwnerHistory", owner),
		engine.Attr("Name", "Wall 'A'"),
		engine.Attr("Description", "B"+string(rune(0xE4))+"ckerei"),
		engine.Attr("PredefinedType", ir.Enum("SOLIDWALL")),
	)
	create("IfcRelAggregates",
		engine.Attr("GlobalId", "rel"),
		engine.Attr("RelatingObject", wall),
		engine.Attr("RelatedObjects", []*engine.Entity{wall}),
	)
	create("Sample",
		engine.Attr("Values", ir.Aggregate{ir.Int(1), ir.Real(2.5), ir.String("x"), ir.Bool(true)}),
		engine.Attr("Scale", 2),
		engine.Attr("Visible", false),
	)
	create("IfcPerson",
		engine.Attr("Identification", "p"),
		engine.Attr("MiddleNames", ir.Aggregate{}),
	)
	return d
}

func sampleHeader() spf.Header {
	h := spf.DefaultHeader()
	h.Name = "walls.ifc"
	h.TimeStamp = "2024-01-01T00:00:00"
	return h
}

func TestMarshal_Golden(t *testing.T) {
	data, err := spf.Marshal(sampleDocument(t), sampleHeader())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "document", data)
}

func TestMarshal_Empty(t *testing.T) {
	d := engine.New(testutil.IFC(), engine.WithLogger(quietLogger()))
	data, err := spf.Marshal(d, spf.DefaultHeader())
	require.NoError(t, err)

	require.Contains(t, string(data), "FILE_SCHEMA(('IFC4'));\n")
	require.Contains(t, string(data), "DATA;\nENDSEC;\nEND-ISO-10303-21;\n")
}
