package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "by id",
			args: []string{"--id", "2"},
			want: "#2=IfcWall('w2',$,'Part',$,$,$,$,$,.STANDARD.)\n",
		},
		{
			name: "by guid",
			args: []string{"--guid", "w1"},
			want: "#1=IfcWall('w1',$,'Host',$,$,$,$,$,$)\n",
		},
		{
			name: "by type with subtypes",
			args: []string{"--type", "IfcBuildingElement"},
			want: "#1=IfcWall('w1',$,'Host',$,$,$,$,$,$)\n" +
				"#2=IfcWall('w2',$,'Part',$,$,$,$,$,.STANDARD.)\n" +
				"#4=IfcSlab($,$,'Floor',$,$,$,$,$,$)\n",
		},
		{
			name: "exact type",
			args: []string{"--type", "IfcBuildingElement", "--exact"},
			want: "",
		},
		{
			name: "type names ignore case",
			args: []string{"--type", "IFCSLAB"},
			want: "#4=IfcSlab($,$,'Floor',$,$,$,$,$,$)\n",
		},
		{
			name: "traverse",
			args: []string{"--guid", "r1", "--traverse", "1"},
			want: "#3=IfcRelAggregates('r1',$,$,$,#1,(#2))\n" +
				"#1=IfcWall('w1',$,'Host',$,$,$,$,$,$)\n" +
				"#2=IfcWall('w2',$,'Part',$,$,$,$,$,.STANDARD.)\n",
		},
		{
			name: "traverse zero levels",
			args: []string{"--id", "3", "--traverse", "0"},
			want: "#3=IfcRelAggregates('r1',$,$,$,#1,(#2))\n",
		},
		{
			name: "inverse",
			args: []string{"--id", "2", "--inverse"},
			want: "#3=IfcRelAggregates('r1',$,$,$,#1,(#2))\n" +
				"  <- #3.RelatedObjects\n" +
				"1 reference(s) from 1 entities\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{file}, tt.args...)
			out, err := execute(NewQueryCommand(&RootOptions{Format: "text"}), args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestQueryJSON(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)

	out, err := execute(NewQueryCommand(&RootOptions{Format: "json"}), file, "--id", "1", "--inverse")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entities, 1)

	rel := resp.Data.Entities[0]
	assert.Equal(t, int64(3), rel.ID)
	assert.Equal(t, "IfcRelAggregates", rel.Type)
	assert.Equal(t, "'r1'", rel.Attributes["GlobalId"])
	assert.Equal(t, "#1", rel.Attributes["RelatingObject"])
	assert.Equal(t, "(#2)", rel.Attributes["RelatedObjects"])
	assert.Equal(t, []EdgeView{{From: 3, Attr: "RelatingObject"}}, resp.Data.Edges)
	assert.Equal(t, 1, resp.Data.Total)
}

func TestQueryErrors(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"no selector", []string{}, ExitCommandError, ErrCodeBadQuery},
		{"two selectors", []string{"--id", "1", "--guid", "w1"}, ExitCommandError, ErrCodeBadQuery},
		{"traverse with type", []string{"--type", "IfcWall", "--traverse", "1"}, ExitCommandError, ErrCodeBadQuery},
		{"inverse with type", []string{"--type", "IfcWall", "--inverse"}, ExitCommandError, ErrCodeBadQuery},
		{"traverse with inverse", []string{"--id", "1", "--traverse", "1", "--inverse"}, ExitCommandError, ErrCodeBadQuery},
		{"exact without type", []string{"--id", "1", "--exact"}, ExitCommandError, ErrCodeBadQuery},
		{"missing id", []string{"--id", "99"}, ExitFailure, ErrCodeEntityNotFound},
		{"missing guid", []string{"--guid", "nope"}, ExitFailure, ErrCodeEntityNotFound},
		{"unknown type", []string{"--type", "IfcDoor"}, ExitFailure, ErrCodeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{file}, tt.args...)
			out, err := execute(NewQueryCommand(&RootOptions{Format: "text"}), args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}
