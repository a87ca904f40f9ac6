package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // treat unset required attributes as errors
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool             `json:"valid"`
	File        string           `json:"file"`
	Schema      string           `json:"schema"`
	Entities    int              `json:"entities"`
	MaxID       int64            `json:"max_id"`
	Fingerprint string           `json:"fingerprint"`
	Types       map[string]int   `json:"types"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
}

// ValidationIssue is a required attribute left unset.
type ValidationIssue struct {
	Code    string `json:"code"`
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Attr    string `json:"attr"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file.ifc>",
		Short: "Check an exchange file against the schema",
		Long: `Parse an exchange file and bind it to the schema.

Loading checks entity types, attribute counts and kinds, reference targets,
dangling references and unique keys. Required attributes left unset are
reported as issues; with --strict they fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when required attributes are unset")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadSchema(opts.Schema)
	if err != nil {
		return failLoad(formatter, err)
	}

	f, err := LoadDocument(path, loaded.Table)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code != ErrCodeNotFound {
			// The file exists but is invalid: a validation failure.
			return formatter.Fail(ExitFailure, loadErr.Code, loadErr.Message, nil)
		}
		return failLoad(formatter, err)
	}
	doc := f.Document
	formatter.VerboseLog("Loaded %d entities from %s", doc.Len(), path)

	fingerprint, err := doc.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	result := ValidationResult{
		File:        path,
		Schema:      doc.Schema().Name(),
		Entities:    doc.Len(),
		MaxID:       int64(doc.MaxID()),
		Fingerprint: fingerprint,
		Types:       doc.CountByType(),
		Issues:      requiredIssues(doc),
	}
	result.Valid = !opts.Strict || len(result.Issues) == 0

	return outputValidateResult(formatter, result)
}

// requiredIssues lists every required attribute that is unset, in identity
// and slot order.
func requiredIssues(doc *engine.Document) []ValidationIssue {
	var issues []ValidationIssue
	table := doc.Schema()
	for _, e := range doc.Entities() {
		values := e.Values()
		for slot, attr := range table.Attributes(e.Type()) {
			if attr.Optional || !ir.IsNull(values[slot]) {
				continue
			}
			issues = append(issues, ValidationIssue{
				Code:    ErrCodeMissingValue,
				ID:      int64(e.ID()),
				Type:    e.Type(),
				Attr:    attr.Name,
				Message: fmt.Sprintf("%s.%s is required but unset", e.ID(), attr.Name),
			})
		}
	}
	return issues
}

// outputValidateResult outputs the validation result.
func outputValidateResult(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    result.Issues[0].Code,
				Message: result.Issues[0].Message,
			}
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(result.Issues)))
		}
		return nil
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ %s: %d entities (schema %s, max id #%d)\n", result.File, result.Entities, result.Schema, result.MaxID)
	} else {
		fmt.Fprintf(w, "✗ Validation failed: %s\n", result.File)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(result.Types))
	for name := range result.Types {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-32s %d\n", name, result.Types[name])
	}

	if len(result.Issues) > 0 {
		fmt.Fprintln(w)
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "  %s: %s\n", issue.Code, issue.Message)
		}
	}
	formatter.VerboseLog("fingerprint %s", result.Fingerprint)

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(result.Issues)))
	}
	return nil
}
