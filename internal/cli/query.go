package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	ID       int64
	GUID     string
	Type     string
	Exact    bool // --type without subtypes
	Traverse int  // levels of forward references; negative is unbounded
	Inverse  bool
}

// EntityView is the JSON form of an entity.
type EntityView struct {
	ID         int64             `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EdgeView is one reference to the queried entity.
type EdgeView struct {
	From int64  `json:"from"`
	Attr string `json:"attr"`
}

// QueryResult holds the entities a query selected.
type QueryResult struct {
	Entities []EntityView `json:"entities"`
	Edges    []EdgeView   `json:"edges,omitempty"`
	Total    int          `json:"total_references,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <file.ifc>",
		Short: "Look up entities in an exchange file",
		Long: `Select entities by identity, GlobalId or type.

With --id or --guid, --traverse N adds everything reachable through N levels
of references (-1 for all) and --inverse lists the entities that refer to it.

Examples:
  stepdoc query model.ifc --id 42
  stepdoc query model.ifc --guid 2O2Fr$t4X7Zf8NOew3FLOH --inverse
  stepdoc query model.ifc --type IfcBuildingElement
  stepdoc query model.ifc --type IfcWall --exact --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "entity identity")
	cmd.Flags().StringVar(&opts.GUID, "guid", "", "entity GlobalId")
	cmd.Flags().StringVar(&opts.Type, "type", "", "entity type (subtypes included)")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "with --type, exclude subtypes")
	cmd.Flags().IntVar(&opts.Traverse, "traverse", 0, "levels of forward references to follow (-1 for all)")
	cmd.Flags().BoolVar(&opts.Inverse, "inverse", false, "list the entities referring to the selected entity")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	selectors := 0
	for _, set := range []bool{opts.ID != 0, opts.GUID != "", opts.Type != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return formatter.Fail(ExitCommandError, ErrCodeBadQuery, "exactly one of --id, --guid and --type is required", nil)
	}
	traverse := cmd.Flags().Changed("traverse")
	if opts.Type != "" && (traverse || opts.Inverse) {
		return formatter.Fail(ExitCommandError, ErrCodeBadQuery, "--traverse and --inverse need --id or --guid", nil)
	}
	if traverse && opts.Inverse {
		return formatter.Fail(ExitCommandError, ErrCodeBadQuery, "--traverse and --inverse are exclusive", nil)
	}
	if opts.Type == "" && opts.Exact {
		return formatter.Fail(ExitCommandError, ErrCodeBadQuery, "--exact needs --type", nil)
	}

	loaded, err := LoadSchema(opts.Schema)
	if err != nil {
		return failLoad(formatter, err)
	}
	f, err := LoadDocument(path, loaded.Table)
	if err != nil {
		return failLoad(formatter, err)
	}
	doc := f.Document

	var result QueryResult
	var selected []*engine.Entity
	var edges []engine.Edge

	if opts.Type != "" {
		selected, err = doc.ByType(opts.Type, !opts.Exact)
		if err != nil {
			return formatter.Fail(ExitFailure, MapEngineCode(engine.CodeOf(err)), err.Error(), nil)
		}
	} else {
		var key any = ir.ID(opts.ID)
		if opts.GUID != "" {
			key = opts.GUID
		}
		root, err := doc.Lookup(key)
		if err != nil {
			return formatter.Fail(ExitFailure, MapEngineCode(engine.CodeOf(err)), err.Error(), nil)
		}

		switch {
		case opts.Inverse:
			if selected, err = doc.Inverse(root); err != nil {
				return formatter.Fail(ExitFailure, MapEngineCode(engine.CodeOf(err)), err.Error(), nil)
			}
			edges = doc.InverseEdges(root)
			result.Total = doc.TotalInverses(root)
		case traverse:
			if selected, err = doc.Traverse(root, opts.Traverse); err != nil {
				return formatter.Fail(ExitFailure, MapEngineCode(engine.CodeOf(err)), err.Error(), nil)
			}
		default:
			selected = []*engine.Entity{root}
		}
	}
	formatter.VerboseLog("Selected %d of %d entities", len(selected), doc.Len())

	table := doc.Schema()
	result.Entities = make([]EntityView, 0, len(selected))
	for _, e := range selected {
		result.Entities = append(result.Entities, viewEntity(table, e))
	}
	for _, edge := range edges {
		from, _ := doc.ByID(edge.From)
		attr, _ := table.AttributeAt(from.Type(), edge.Slot)
		result.Edges = append(result.Edges, EdgeView{From: int64(edge.From), Attr: attr.Name})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, e := range selected {
		fmt.Fprintln(w, e.String())
	}
	if opts.Inverse {
		for _, edge := range result.Edges {
			fmt.Fprintf(w, "  <- #%d.%s\n", edge.From, edge.Attr)
		}
		fmt.Fprintf(w, "%d reference(s) from %d entities\n", result.Total, len(selected))
	}
	return nil
}

// viewEntity renders attribute values in exchange notation, keyed by name.
func viewEntity(table *schema.Table, e *engine.Entity) EntityView {
	view := EntityView{
		ID:         int64(e.ID()),
		Type:       e.Type(),
		Attributes: make(map[string]string),
	}
	for slot, v := range e.Values() {
		attr, ok := table.AttributeAt(e.Type(), slot)
		if !ok {
			continue
		}
		view.Attributes[attr.Name] = ir.Format(v)
	}
	return view
}
