package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "stepdoc", cmd.Use)
	assert.Contains(t, cmd.Long, "ISO 10303-21")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "query", "export", "apply", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	logFlag := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, logFlag)
	assert.Equal(t, "pretty", logFlag.DefValue)

	schemaFlag := cmd.PersistentFlags().Lookup("schema")
	require.NotNil(t, schemaFlag)
	assert.Equal(t, "", schemaFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		short   string
		def     string
	}{
		{"compile", "output", "o", ""},
		{"validate", "strict", "", "false"},
		{"query", "id", "", "0"},
		{"query", "guid", "", ""},
		{"query", "type", "", ""},
		{"query", "exact", "", "false"},
		{"query", "traverse", "", "0"},
		{"query", "inverse", "", "false"},
		{"export", "db", "", ""},
		{"apply", "output", "o", ""},
		{"test", "update", "", "false"},
		{"test", "filter", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			flag := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.short, flag.Shorthand)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestFormatValidationIntegration(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad format", []string{"--format", "invalid", "compile"}, "invalid format"},
		{"bad log format", []string{"--log-format", "xml", "compile"}, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(NewRootCommand(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCommand_SchemaFlag(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mini.cue"), []byte(miniCUE), 0644))
	file := writeTemp(t, "chain.ifc", `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('','',(''),(''),'','','');
FILE_SCHEMA(('MINI'));
ENDSEC;
DATA;
#1=NODE('b',$);
#2=NODE('a',#1);
ENDSEC;
END-ISO-10303-21;
`)

	out, err := execute(NewRootCommand(), "--schema", dir, "query", file, "--guid", "a", "--traverse=-1")
	require.NoError(t, err)
	assert.Equal(t, "#2=Node('a',#1)\n#1=Node('b',$)\n", out)
}

func TestRootCommand_InstallsLogger(t *testing.T) {
	file := writeTemp(t, "sample.ifc", sampleIFC)
	keepDefaultLogger(t)

	cmd := NewRootCommand()
	stderr := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--verbose", "--log-format", "json", "validate", file})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stderr.String(), `"msg":"document loaded"`)
}
