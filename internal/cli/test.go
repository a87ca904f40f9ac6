package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/stepdoc/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // keep scenario files whose name contains this
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario scripts",
		Long: `Run every scenario file in a directory.

Each scenario runs in a fresh document. A scenario passes when its steps
behave as expected and its assertions hold. When golden/<name>.golden exists
next to the scenarios, the final document must also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  stepdoc test ./scenarios
  stepdoc test ./scenarios --filter undo
  stepdoc test ./scenarios --update
  stepdoc test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenario files whose name contains this")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}

	paths, err := harness.FindScenarios(dir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScanError, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d scenario(s) in %s", len(paths), dir)

	goldenDir := filepath.Join(dir, "golden")
	suite := harness.RunSuite(paths, func(s *harness.Scenario, r *harness.Result) error {
		path := filepath.Join(goldenDir, s.Name+".golden")
		if opts.Update {
			return updateGoldenFile(path, r.Text)
		}
		return compareWithGolden(path, r.Text)
	})

	if formatter.Format == "json" {
		return outputTestJSON(formatter, suite)
	}
	return outputTestText(formatter, suite, len(paths) == 0)
}

// updateGoldenFile writes the final document text as the golden file.
func updateGoldenFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden checks text against the golden file at path. A missing
// golden file leaves the scenario to its assertions.
func compareWithGolden(path, text string) error {
	golden, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, []byte(text)) {
		return fmt.Errorf("document does not match %s (run with --update to regenerate)", filepath.Base(path))
	}
	return nil
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	response := CLIResponse{Status: "ok", Data: suite}
	if suite.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", suite.Failed),
		}
	}

	if err := encodeIndented(formatter.Writer, response); err != nil {
		return err
	}

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return nil
}

// outputTestText outputs the suite result as text.
func outputTestText(formatter *OutputFormatter, suite *harness.SuiteResult, empty bool) error {
	w := formatter.Writer

	if empty {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, f := range suite.Failures {
		name := f.Scenario
		if name == "" {
			name = filepath.Base(f.Path)
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		fmt.Fprintf(w, "  %s\n", f.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
