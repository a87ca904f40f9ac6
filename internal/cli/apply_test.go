package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renameScript = `name: rename
description: renames the part wall and adds a slab
steps:
  - {op: begin}
  - {op: set, entity: "#2", attr: Name, value: Renamed}
  - {op: create, type: IfcSlab, as: slab, attrs: {Name: New}}
  - {op: end}
assertions:
  - {type: attribute, entity: w2, attr: Name, value: Renamed}
  - {type: count, entity_type: IfcSlab, count: 2}
  - {type: history_len, count: 1}
`

func TestApply(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	script := writeTemp(t, "rename.yaml", renameScript)

	out, err := execute(NewApplyCommand(&RootOptions{Format: "text"}), file, script)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "ISO-10303-21;\n"))
	assert.Contains(t, out, "FILE_NAME('sample','2026-01-01T00:00:00',('author'),(''),'','','');")
	assert.Contains(t, out, "#1=IFCWALL('w1',$,'Host',$,$,$,$,$,$);")
	assert.Contains(t, out, "#2=IFCWALL('w2',$,'Renamed',$,$,$,$,$,.STANDARD.);")
	assert.Contains(t, out, "#5=IFCSLAB('")
	assert.NotContains(t, out, "#5=IFCSLAB($")
}

func TestApplyOutputFile(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	script := writeTemp(t, "rename.yaml", renameScript)
	target := filepath.Join(t.TempDir(), "renamed.ifc")

	out, err := execute(NewApplyCommand(&RootOptions{Format: "text"}), file, script, "-o", target)
	require.NoError(t, err)
	assert.Equal(t, "✓ Wrote "+target+" (5 entities)\n", out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "'Renamed'")

	// The written file reads back.
	out, err = execute(NewValidateCommand(&RootOptions{Format: "text"}), target)
	require.NoError(t, err)
	assert.Contains(t, out, "5 entities (schema IFC4, max id #5)")
}

func TestApplyJSON(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	script := writeTemp(t, "rename.yaml", renameScript)
	target := filepath.Join(t.TempDir(), "renamed.ifc")

	out, err := execute(NewApplyCommand(&RootOptions{Format: "json"}), file, script, "--output", target)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ApplyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Len(t, resp.Data.Trace, 4)
	assert.Equal(t, "#2.Name", resp.Data.Trace[1].Target)
	assert.Equal(t, "#5", resp.Data.Trace[2].Target)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Equal(t, target, resp.Data.Output)
}

func TestApplyFailingAssertion(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	script := writeTemp(t, "wrong.yaml", strings.Replace(renameScript, "count: 2}", "count: 3}", 1))

	out, err := execute(NewApplyCommand(&RootOptions{Format: "json"}), file, script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   ApplyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Pass)
	require.Len(t, resp.Data.Errors, 1)
	assert.Contains(t, resp.Data.Errors[0], "assertions[1]")
}

func TestApplyErrors(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	script := writeTemp(t, "rename.yaml", renameScript)
	dir := t.TempDir()

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing document", []string{filepath.Join(dir, "none.ifc"), script}, ErrCodeNotFound},
		{"missing script", []string{file, filepath.Join(dir, "none.yaml")}, ErrCodeGeneric},
		{"invalid script", []string{file, writeTemp(t, "bad.yaml", "name: bad\n")}, ErrCodeGeneric},
		{"unwritable output", []string{file, script, "-o", filepath.Join(dir, "missing", "out.ifc")}, ErrCodeWriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewApplyCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}
