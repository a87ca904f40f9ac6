package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepdoc/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// SchemaSummary describes a compiled schema.
type SchemaSummary struct {
	Schema   string          `json:"schema"`
	Entities []EntitySummary `json:"entities"`
}

// EntitySummary describes one entity type with its flattened attributes.
type EntitySummary struct {
	Name       string             `json:"name"`
	Supertype  string             `json:"supertype,omitempty"`
	Abstract   bool               `json:"abstract,omitempty"`
	Unique     string             `json:"unique,omitempty"`
	Attributes []AttributeSummary `json:"attributes"`
}

// AttributeSummary describes one attribute slot.
type AttributeSummary struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional,omitempty"`
	Target   string `json:"target,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [schema-dir]",
		Short: "Compile a CUE schema",
		Long: `Compile a CUE schema package into an entity schema table.

Checks supertypes, attribute kinds, reference targets and unique keys and
prints the flattened attribute layout of every entity type. Without an
argument the --schema directory, or the built-in IFC4 subset, is compiled.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Schema
			if len(args) == 1 {
				dir = args[0]
			}
			return runCompile(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the schema summary as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadSchema(dir)
	if err != nil {
		return failLoad(formatter, err)
	}
	if loaded.Dir != "" {
		formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, loaded.Dir)
	}

	summary := summarizeSchema(loaded.Table)

	if opts.Output != "" {
		if err := writeJSONFile(summary, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, summary, opts.Output)
}

// summarizeSchema lists every entity type of table in name order.
func summarizeSchema(table *schema.Table) SchemaSummary {
	summary := SchemaSummary{Schema: table.Name()}
	for _, name := range table.Names() {
		decl, _ := table.Lookup(name)
		entity := EntitySummary{
			Name:      decl.Name,
			Supertype: decl.Supertype,
			Abstract:  decl.Abstract,
		}
		if slot := table.UniqueSlot(name); slot >= 0 {
			attr, _ := table.AttributeAt(name, slot)
			entity.Unique = attr.Name
		}
		for slot, attr := range table.Attributes(name) {
			entity.Attributes = append(entity.Attributes, AttributeSummary{
				Slot:     slot,
				Name:     attr.Name,
				Kind:     attr.Kind.String(),
				Optional: attr.Optional,
				Target:   attr.Target,
			})
		}
		summary.Entities = append(summary.Entities, entity)
	}
	return summary
}

// outputCompileSuccess outputs the compiled schema.
func outputCompileSuccess(formatter *OutputFormatter, summary SchemaSummary, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	abstract := 0
	for _, e := range summary.Entities {
		if e.Abstract {
			abstract++
		}
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled schema %s: %d entity type(s), %d abstract\n\n",
		summary.Schema, len(summary.Entities), abstract)

	fmt.Fprintln(w, "Entities:")
	for _, e := range summary.Entities {
		line := "  " + e.Name
		if e.Supertype != "" {
			line += " < " + e.Supertype
		}
		if e.Abstract {
			line += " (abstract)"
		}
		fmt.Fprintf(w, "%s: %d attribute(s)\n", line, len(e.Attributes))
		if formatter.Verbose {
			for _, a := range e.Attributes {
				fmt.Fprintf(w, "    %d %s %s%s\n", a.Slot, a.Name, a.Kind, attributeSuffix(a))
			}
		}
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote schema summary to %s\n", outputFile)
	}
	return nil
}

func attributeSuffix(a AttributeSummary) string {
	s := ""
	if a.Target != "" {
		s += " -> " + a.Target
	}
	if a.Optional {
		s += " (optional)"
	}
	return s
}

// writeJSONFile writes v to filename as indented JSON.
func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
