package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/harness"
	"github.com/roach88/stepdoc/internal/spf"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Output string // file for the edited document; stdout when empty
}

// ApplyResult is the JSON form of an applied script.
type ApplyResult struct {
	Pass        bool                 `json:"pass"`
	Trace       []harness.TraceEvent `json:"trace"`
	Errors      []string             `json:"errors,omitempty"`
	Fingerprint string               `json:"fingerprint"`
	Output      string               `json:"output,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <file.ifc> <script.yaml>",
		Short: "Run an editing script against an exchange file",
		Long: `Load an exchange file, run the steps of a scenario script against it and
write the edited document.

Steps address existing entities as #N or by GlobalId. New entities get
random GlobalIds. Assertions in the script are checked after the steps;
the command exits with status 1 when any of them fails.

Examples:
  stepdoc apply model.ifc rename.yaml -o model-renamed.ifc
  stepdoc apply model.ifc cleanup.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the edited document to file")

	return cmd
}

func runApply(opts *ApplyOptions, path, scriptPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadSchema(opts.Schema)
	if err != nil {
		return failLoad(formatter, err)
	}
	f, err := LoadDocument(path, loaded.Table, engine.WithGUIDGenerator(engine.UUIDGUIDGenerator{}))
	if err != nil {
		return failLoad(formatter, err)
	}

	scenario, err := harness.LoadScenario(scriptPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	result, err := harness.New(f.Document, slog.Default()).Run(scenario)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Applied %d step(s) from %s", len(result.Trace), scriptPath)

	text, err := spf.Marshal(f.Document, f.Header)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, text, 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to write %s: %v", opts.Output, err), nil)
		}
	}

	if formatter.Format == "json" {
		out := ApplyResult{
			Pass:        result.Pass,
			Trace:       result.Trace,
			Errors:      result.Errors,
			Fingerprint: result.Fingerprint,
			Output:      opts.Output,
		}
		if err := encodeIndented(formatter.Writer, CLIResponse{Status: status(result.Pass), Data: out}); err != nil {
			return err
		}
	} else {
		if opts.Output == "" {
			_, _ = formatter.Writer.Write(text)
		} else {
			fmt.Fprintf(formatter.Writer, "✓ Wrote %s (%d entities)\n", opts.Output, f.Document.Len())
		}
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.GetErrWriter(), "✗ %s\n", e)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("script %s failed: %d error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

func status(pass bool) string {
	if pass {
		return "ok"
	}
	return "error"
}
