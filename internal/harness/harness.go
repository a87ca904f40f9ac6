package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/stepdoc/internal/compiler"
	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
	"github.com/roach88/stepdoc/internal/schema"
	"github.com/roach88/stepdoc/internal/spf"
	"github.com/roach88/stepdoc/internal/testutil"
)

// errScenario marks mistakes in the scenario itself, such as an unknown
// alias. They abort the run instead of counting as a failed expectation.
var errScenario = errors.New("scenario error")

// Harness executes steps against a document.
type Harness struct {
	doc     *engine.Document
	foreign *engine.Document
	aliases map[string]*engine.Entity
	// foreignAliases name entities of the foreign document
	foreignAliases map[string]*engine.Entity
	logger         *slog.Logger
}

// New creates a harness operating on doc.
func New(doc *engine.Document, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{
		doc:            doc,
		aliases:        make(map[string]*engine.Entity),
		foreignAliases: make(map[string]*engine.Entity),
		logger:         logger,
	}
}

// Document returns the document under test.
func (h *Harness) Document() *engine.Document {
	return h.doc
}

// Alias returns the entity bound to name by a create or add step.
func (h *Harness) Alias(name string) (*engine.Entity, bool) {
	e, ok := h.aliases[name]
	return e, ok
}

// Run executes a scenario against a fresh document and returns the result.
//
// Each scenario runs in its own document with a discarding logger, and
// deterministic GUIDs when the scenario asks for them.
//
// Execution flow:
// 1. Load the schema (built-in IFC4 unless the scenario names a directory)
// 2. Build the foreign document
// 3. Execute setup steps
// 4. Execute steps, checking expected errors
// 5. Evaluate assertions and render the final document
func Run(scenario *Scenario) (*Result, error) {
	table, err := loadTable(scenario.Schema)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []engine.Option{engine.WithLogger(logger)}
	if scenario.HistorySize > 0 {
		opts = append(opts, engine.WithHistorySize(scenario.HistorySize))
	}
	if scenario.GUIDs {
		opts = append(opts, engine.WithGUIDGenerator(testutil.NewSequenceGUIDGenerator("")))
	}

	return New(engine.New(table, opts...), logger).Run(scenario)
}

func loadTable(dir string) (*schema.Table, error) {
	if dir == "" {
		table, err := compiler.IFC4()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in schema: %w", err)
		}
		return table, nil
	}
	table, err := compiler.LoadSchemaDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", dir, err)
	}
	return table, nil
}

// Run executes a scenario against the harness document. The scenario's
// schema, guids and history_size settings are ignored; they configure the
// document that the package-level Run creates.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	if len(scenario.Foreign) > 0 {
		h.foreign = engine.New(h.doc.Schema(), engine.WithLogger(h.logger))
		for i, step := range scenario.Foreign {
			if _, err := h.execute(h.foreign, h.foreignAliases, step); err != nil {
				return nil, fmt.Errorf("foreign step %d: %w", i, err)
			}
		}
	}

	for i, step := range scenario.Setup {
		if _, err := h.execute(h.doc, h.aliases, step); err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
	}

	result := NewResult()
	if err := h.ExecuteSteps(scenario.Steps, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Document: h.doc, Aliases: h.aliases}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	if err := h.finish(scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteSteps runs steps in order and records them in result.
//
// A step with expect_error must fail with that code. Any other failure is
// recorded and stops the script. Mistakes in the scenario itself are
// returned as errors.
func (h *Harness) ExecuteSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		target, err := h.execute(h.doc, h.aliases, step)
		if errors.Is(err, errScenario) {
			return fmt.Errorf("step %d: %w", i, err)
		}
		code := string(engine.CodeOf(err))

		switch {
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", i, step.Op, step.ExpectError))
		case step.ExpectError != "" && code != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", i, step.Op, step.ExpectError, err))
		case step.ExpectError == "" && err != nil:
			result.AddTrace(step.Op, target, code)
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			return nil
		}
		result.AddTrace(step.Op, target, code)

		h.logger.Debug("step executed",
			"step", i,
			"op", step.Op,
			"target", target,
			"error", code,
		)
	}
	return nil
}

// finish renders the final document into result.
func (h *Harness) finish(name string, result *Result) error {
	header := spf.DefaultHeader()
	header.Name = name
	text, err := spf.Marshal(h.doc, header)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	result.Text = string(text)

	fingerprint, err := h.doc.Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to fingerprint document: %w", err)
	}
	result.Fingerprint = fingerprint
	return nil
}

// execute performs one step against doc and returns a description of its
// target for the trace.
func (h *Harness) execute(doc *engine.Document, aliases map[string]*engine.Entity, step Step) (string, error) {
	switch step.Op {
	case OpCreate:
		seeds, err := createSeeds(aliases, step)
		if err != nil {
			return step.Type, err
		}
		e, err := doc.CreateEntity(step.Type, seeds...)
		if err != nil {
			return step.Type, err
		}
		bind(aliases, step.As, e)
		return e.ID().String(), nil

	case OpSet:
		e, err := resolve(doc, aliases, step.Entity)
		if err != nil {
			return step.Entity, err
		}
		target := e.ID().String() + "." + step.Attr
		v, err := convertValue(step.Value, aliases)
		if err != nil {
			return target, err
		}
		return target, doc.SetAttribute(e, step.Attr, v)

	case OpRemove:
		e, err := resolve(doc, aliases, step.Entity)
		if err != nil {
			return step.Entity, err
		}
		return e.ID().String(), doc.Remove(e)

	case OpAdd:
		src, err := h.resolveSource(step.Entity)
		if err != nil {
			return step.Entity, err
		}
		added, err := doc.Add(src)
		if err != nil {
			return src.ID().String(), err
		}
		bind(aliases, step.As, added)
		return added.ID().String(), nil

	case OpBegin:
		return "", doc.BeginTransaction()
	case OpEnd:
		return "", doc.EndTransaction()
	case OpDiscard:
		return "", doc.DiscardTransaction()
	case OpUndo:
		return "", doc.Undo()
	case OpRedo:
		return "", doc.Redo()
	case OpBatch:
		return "", doc.Batch()
	case OpUnbatch:
		return "", doc.Unbatch()
	case OpHistorySize:
		return strconv.Itoa(step.Size), doc.SetHistorySize(step.Size)

	default:
		return "", fmt.Errorf("%w: unknown op %q", errScenario, step.Op)
	}
}

// createSeeds converts the values of a create step. Named attributes are applied
// in name order so errors are reported deterministically.
func createSeeds(aliases map[string]*engine.Entity, step Step) ([]engine.Seed, error) {
	var seeds []engine.Seed
	if len(step.Args) > 0 {
		args := make([]any, len(step.Args))
		for i, raw := range step.Args {
			v, err := convertValue(raw, aliases)
			if err != nil {
				return nil, fmt.Errorf("args[%d]: %w", i, err)
			}
			args[i] = v
		}
		seeds = append(seeds, engine.Args(args...))
	}

	names := make([]string, 0, len(step.Attrs))
	for name := range step.Attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v, err := convertValue(step.Attrs[name], aliases)
		if err != nil {
			return nil, fmt.Errorf("attrs.%s: %w", name, err)
		}
		seeds = append(seeds, engine.Attr(name, v))
	}

	if step.ID != 0 {
		seeds = append(seeds, engine.WithID(ir.ID(step.ID)))
	}
	return seeds, nil
}

func bind(aliases map[string]*engine.Entity, name string, e *engine.Entity) {
	if name != "" {
		aliases[name] = e
	}
}

// resolve finds the entity named by ref: "@alias" is a bound handle, "#id" an
// identity and anything else a GUID. Handles of removed entities resolve, so
// that operations on them can be expected to fail.
func resolve(doc *engine.Document, aliases map[string]*engine.Entity, ref string) (*engine.Entity, error) {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		e, found := aliases[name]
		if !found {
			return nil, fmt.Errorf("%w: unknown alias %q", errScenario, name)
		}
		return e, nil
	}
	if digits, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed identity %q", errScenario, ref)
		}
		return doc.Lookup(ir.ID(n))
	}
	return doc.Lookup(ref)
}

// resolveSource resolves the entity of an add step. Foreign aliases take
// precedence; identities and GUIDs refer to the foreign document when the
// scenario has one.
func (h *Harness) resolveSource(ref string) (*engine.Entity, error) {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		if e, found := h.foreignAliases[name]; found {
			return e, nil
		}
		return resolve(h.doc, h.aliases, ref)
	}
	if h.foreign != nil {
		return resolve(h.foreign, h.foreignAliases, ref)
	}
	return resolve(h.doc, h.aliases, ref)
}

// convertValue converts a YAML-parsed value into a value accepted by the
// document:
//   - null is unset
//   - "@alias" is a reference, a list of them a reference list
//   - {enum: X}, {real: N} and {ref: N} force those kinds
//   - other lists are aggregates
func convertValue(val any, aliases map[string]*engine.Entity) (any, error) {
	switch v := val.(type) {
	case string:
		if name, ok := strings.CutPrefix(v, "@"); ok {
			e, found := aliases[name]
			if !found {
				return nil, fmt.Errorf("%w: unknown alias %q", errScenario, name)
			}
			return e, nil
		}
		return v, nil
	case []any:
		if len(v) > 0 && allAliases(v) {
			list := make([]*engine.Entity, len(v))
			for i, elem := range v {
				name := strings.TrimPrefix(elem.(string), "@")
				e, found := aliases[name]
				if !found {
					return nil, fmt.Errorf("%w: unknown alias %q", errScenario, name)
				}
				list[i] = e
			}
			return list, nil
		}
		return toIR(v)
	default:
		return toIR(v)
	}
}

func allAliases(list []any) bool {
	for _, elem := range list {
		s, ok := elem.(string)
		if !ok || !strings.HasPrefix(s, "@") {
			return false
		}
	}
	return true
}

// toIR converts a YAML-parsed value that contains no aliases.
func toIR(val any) (ir.Value, error) {
	switch v := val.(type) {
	case nil:
		return ir.Null{}, nil
	case string:
		if strings.HasPrefix(v, "@") {
			return nil, fmt.Errorf("%w: alias %q is not allowed here", errScenario, v)
		}
		return ir.String(v), nil
	case int:
		return ir.Int(v), nil
	case int64:
		return ir.Int(v), nil
	case float64:
		return ir.Real(v), nil
	case bool:
		return ir.Bool(v), nil
	case []any:
		agg := make(ir.Aggregate, len(v))
		for i, elem := range v {
			iv, err := toIR(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			agg[i] = iv
		}
		return agg, nil
	case map[string]any:
		return taggedValue(v)
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", errScenario, val)
	}
}

// taggedValue converts the single-key forms {enum: X}, {real: N} and {ref: N}.
func taggedValue(m map[string]any) (ir.Value, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: tagged value must have exactly one key, got %d", errScenario, len(m))
	}
	var tag string
	var raw any
	for tag, raw = range m {
	}

	switch tag {
	case "enum":
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: enum must be a string", errScenario)
		}
		return ir.Enum(s), nil
	case "real":
		switch n := raw.(type) {
		case int:
			return ir.Real(float64(n)), nil
		case float64:
			return ir.Real(n), nil
		}
		return nil, fmt.Errorf("%w: real must be a number", errScenario)
	case "ref":
		n, ok := raw.(int)
		if !ok {
			return nil, fmt.Errorf("%w: ref must be an integer", errScenario)
		}
		return ir.Ref(n), nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", errScenario, tag)
	}
}
