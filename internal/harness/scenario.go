package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepdoc/internal/engine"
)

// Scenario is an edit script with expectations about the resulting document.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a directory of CUE files defining the schema. Relative paths
	// are resolved against the scenario file. Empty selects the built-in
	// IFC4 subset.
	Schema string `yaml:"schema,omitempty"`

	// GUIDs assigns deterministic unique keys (guid-0001, ...) to entities
	// created without one.
	GUIDs bool `yaml:"guids,omitempty"`

	// HistorySize bounds the undo history. Zero keeps the default.
	HistorySize int `yaml:"history_size,omitempty"`

	// Foreign steps build a second document with the same schema. Its
	// entities are the sources of add steps.
	Foreign []Step `yaml:"foreign,omitempty"`

	// Setup steps build the starting state. They are not traced and must
	// succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps is the traced edit script.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one document operation. Op selects which of the other fields apply.
type Step struct {
	Op string `yaml:"op"`

	// Type is the entity type (create).
	Type string `yaml:"type,omitempty"`

	// As binds the created or added entity to an alias usable as "@alias".
	As string `yaml:"as,omitempty"`

	// Args are positional attribute values (create).
	Args []any `yaml:"args,omitempty"`

	// Attrs are named attribute values (create).
	Attrs map[string]any `yaml:"attrs,omitempty"`

	// ID requests an explicit identity (create).
	ID int64 `yaml:"id,omitempty"`

	// Entity names the target: "@alias", "#id" or a GUID (set, remove, add).
	Entity string `yaml:"entity,omitempty"`

	// Attr and Value are the attribute and new value (set).
	Attr  string `yaml:"attr,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Size is the new history size (history_size). A negative size is
	// rejected by the document, which scenarios can expect.
	Size int `yaml:"size,omitempty"`

	// ExpectError is the error code the step must fail with, e.g. NOT_FOUND.
	// A failing step leaves the document unchanged and the script continues.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpCreate      = "create"
	OpSet         = "set"
	OpRemove      = "remove"
	OpAdd         = "add"
	OpBegin       = "begin"
	OpEnd         = "end"
	OpDiscard     = "discard"
	OpUndo        = "undo"
	OpRedo        = "redo"
	OpBatch       = "batch"
	OpUnbatch     = "unbatch"
	OpHistorySize = "history_size"
)

// Assertion validates the final document.
type Assertion struct {
	// Type specifies the assertion type:
	// - "exists": Entity resolves in the document
	// - "missing": Entity does not resolve
	// - "attribute": Attr of Entity equals Value
	// - "history_len": the undo history holds Count transactions
	// - "count": Count entities of Type (all entities when Type is empty)
	// - "by_type": entities of Type are exactly Entities, in order
	// - "inverse": referrers of Entity are exactly Entities, in order
	// - "traverse": traversal from Entity is exactly Entities, in order
	// - "fingerprint_stable": undo then redo reproduces the fingerprint
	Type string `yaml:"type"`

	Entity string `yaml:"entity,omitempty"`
	Attr   string `yaml:"attr,omitempty"`
	Value  any    `yaml:"value,omitempty"`

	// EntityType is the entity type for count and by_type.
	EntityType string `yaml:"entity_type,omitempty"`

	// Subtypes includes instances of subtypes (count, by_type).
	Subtypes bool `yaml:"subtypes,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Total is the expected reference multiplicity (inverse).
	Total *int `yaml:"total,omitempty"`

	// Levels bounds the traversal depth. Absent means unbounded.
	Levels *int `yaml:"levels,omitempty"`

	Entities []string `yaml:"entities,omitempty"`
}

// Assertion type constants.
const (
	AssertExists            = "exists"
	AssertMissing           = "missing"
	AssertAttribute         = "attribute"
	AssertHistoryLen        = "history_len"
	AssertCount             = "count"
	AssertByType            = "by_type"
	AssertInverse           = "inverse"
	AssertTraverse          = "traverse"
	AssertFingerprintStable = "fingerprint_stable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema directory is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if scenario.Schema != "" {
		if _, err := os.Stat(scenario.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema directory: %w", err)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.HistorySize < 0 {
		return fmt.Errorf("history_size must be non-negative")
	}

	sections := []struct {
		name  string
		steps []Step
	}{
		{"foreign", s.Foreign},
		{"setup", s.Setup},
		{"steps", s.Steps},
	}
	for _, section := range sections {
		for i, step := range section.steps {
			if err := validateStep(&step); err != nil {
				return fmt.Errorf("%s[%d]: %w", section.name, i, err)
			}
		}
	}
	for i, step := range s.Setup {
		if step.ExpectError != "" {
			return fmt.Errorf("setup[%d]: expect_error is not allowed in setup", i)
		}
	}
	for i, step := range s.Foreign {
		if step.Op != OpCreate && step.Op != OpSet && step.Op != OpRemove {
			return fmt.Errorf("foreign[%d]: only create, set and remove are allowed", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields an operation needs.
func validateStep(s *Step) error {
	switch s.Op {
	case OpCreate:
		if s.Type == "" {
			return fmt.Errorf("type is required for create")
		}
		if s.ID < 0 {
			return fmt.Errorf("id must be positive")
		}
	case OpSet:
		if s.Entity == "" || s.Attr == "" {
			return fmt.Errorf("entity and attr are required for set")
		}
	case OpRemove, OpAdd:
		if s.Entity == "" {
			return fmt.Errorf("entity is required for %s", s.Op)
		}
	case OpBegin, OpEnd, OpDiscard, OpUndo, OpRedo, OpBatch, OpUnbatch, OpHistorySize:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	if s.ExpectError != "" && !knownCode(s.ExpectError) {
		return fmt.Errorf("unknown error code %q", s.ExpectError)
	}
	if s.As != "" && s.Op != OpCreate && s.Op != OpAdd {
		return fmt.Errorf("as is only valid for create and add")
	}
	return nil
}

func knownCode(code string) bool {
	switch engine.Code(code) {
	case engine.CodeNotFound, engine.CodeSchema, engine.CodeArity, engine.CodeIllegalState, engine.CodeDuplicate:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertExists, AssertMissing:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for %s", index, a.Type)
		}
	case AssertAttribute:
		if a.Entity == "" || a.Attr == "" {
			return fmt.Errorf("assertions[%d]: entity and attr are required for attribute", index)
		}
	case AssertHistoryLen, AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertByType:
		if a.EntityType == "" {
			return fmt.Errorf("assertions[%d]: entity_type is required for by_type", index)
		}
	case AssertInverse:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for inverse", index)
		}
	case AssertTraverse:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for traverse", index)
		}
		if a.Levels != nil && *a.Levels < 0 {
			return fmt.Errorf("assertions[%d]: levels must be non-negative", index)
		}
	case AssertFingerprintStable:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
