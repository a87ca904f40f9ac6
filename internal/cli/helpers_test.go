package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// sampleIFC holds two walls joined by an aggregation and a slab without a
// GlobalId.
const sampleIFC = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('ViewDefinition [CoordinationView]'),'2;1');
FILE_NAME('sample','2026-01-01T00:00:00',('author'),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCWALL('w1',$,'Host',$,$,$,$,$,$);
#2=IFCWALL('w2',$,'Part',$,$,$,$,$,.STANDARD.);
#3=IFCRELAGGREGATES('r1',$,$,$,#1,(#2));
#4=IFCSLAB($,$,'Floor',$,$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

// miniCUE is a one-type schema with a self reference.
const miniCUE = `
package mini

schema: "MINI"
entity: Node: {
	unique: "Key"
	attributes: [
		{name: "Key", kind: "string"},
		{name: "Next", kind: "ref", optional: true, target: "Node"},
	]
}
`

// writeTemp writes content to name inside a fresh temporary directory.
func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// keepDefaultLogger restores the default logger after a test that runs the
// root command.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}
