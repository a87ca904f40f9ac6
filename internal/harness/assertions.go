package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides the document and aliases assertions resolve
// against.
type AssertionContext struct {
	Document *engine.Document
	Aliases  map[string]*engine.Entity
}

// EvaluateAssertions evaluates every assertion and returns the failure
// messages, prefixed with the assertion index.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertExists:
		return assertExists(a, actx, true)
	case AssertMissing:
		return assertExists(a, actx, false)
	case AssertAttribute:
		return assertAttribute(a, actx)
	case AssertHistoryLen:
		return assertHistoryLen(a, actx)
	case AssertCount:
		return assertCount(a, actx)
	case AssertByType:
		return assertByType(a, actx)
	case AssertInverse:
		return assertInverse(a, actx)
	case AssertTraverse:
		return assertTraverse(a, actx)
	case AssertFingerprintStable:
		return assertFingerprintStable(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// live resolves ref to an entity that is currently part of the document.
// An alias whose entity was removed does not resolve.
func (actx *AssertionContext) live(ref string) (*engine.Entity, bool) {
	e, err := resolve(actx.Document, actx.Aliases, ref)
	if err != nil || e.Document() != actx.Document {
		return nil, false
	}
	return e, true
}

// ids resolves refs to identities. Aliases resolve to the identity of their
// entity whether or not it is still present.
func (actx *AssertionContext) ids(refs []string) ([]ir.ID, error) {
	out := make([]ir.ID, 0, len(refs))
	for _, ref := range refs {
		if name, ok := strings.CutPrefix(ref, "@"); ok {
			e, found := actx.Aliases[name]
			if !found {
				return nil, fmt.Errorf("unknown alias %q", name)
			}
			out = append(out, e.ID())
			continue
		}
		e, err := resolve(actx.Document, actx.Aliases, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		out = append(out, e.ID())
	}
	return out, nil
}

func assertExists(a Assertion, actx *AssertionContext, want bool) error {
	_, found := actx.live(a.Entity)
	if found == want {
		return nil
	}
	if want {
		return &AssertionError{Type: a.Type, Expected: a.Entity + " in document", Actual: "not found"}
	}
	return &AssertionError{Type: a.Type, Expected: a.Entity + " absent", Actual: "found"}
}

func assertAttribute(a Assertion, actx *AssertionContext) error {
	e, found := actx.live(a.Entity)
	if !found {
		return &AssertionError{Type: a.Type, Expected: a.Entity + " in document", Actual: "not found"}
	}

	table := actx.Document.Schema()
	slot, ok := table.Slot(e.Type(), a.Attr)
	if !ok {
		return fmt.Errorf("%s has no attribute %s", e.Type(), a.Attr)
	}
	attr, _ := table.AttributeAt(e.Type(), slot)

	raw, err := expectedValue(a.Value, actx.Aliases)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	want, ok := attr.Kind.Coerce(raw)
	if !ok {
		return fmt.Errorf("expected %s does not fit %s attribute %s", ir.Format(raw), attr.Kind, a.Attr)
	}

	got, err := e.At(slot)
	if err != nil {
		return err
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", e.ID(), a.Attr, ir.Format(want)),
			Actual:   fmt.Sprintf("%s.%s = %s", e.ID(), a.Attr, ir.Format(got)),
		}
	}
	return nil
}

// expectedValue converts an expected YAML value. Aliases become plain
// references, so values naming removed entities can still be expressed.
func expectedValue(val any, aliases map[string]*engine.Entity) (ir.Value, error) {
	switch v := val.(type) {
	case string:
		if name, ok := strings.CutPrefix(v, "@"); ok {
			e, found := aliases[name]
			if !found {
				return nil, fmt.Errorf("unknown alias %q", name)
			}
			return ir.Ref(e.ID()), nil
		}
	case []any:
		if len(v) > 0 && allAliases(v) {
			list := make(ir.RefList, len(v))
			for i, elem := range v {
				ref, err := expectedValue(elem, aliases)
				if err != nil {
					return nil, err
				}
				list[i] = ir.ID(ref.(ir.Ref))
			}
			return list, nil
		}
	}
	return toIR(val)
}

func assertHistoryLen(a Assertion, actx *AssertionContext) error {
	if got := actx.Document.HistoryLen(); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d transactions in history", a.Count),
			Actual:   fmt.Sprintf("%d transactions", got),
		}
	}
	return nil
}

func assertCount(a Assertion, actx *AssertionContext) error {
	got := actx.Document.Len()
	if a.EntityType != "" {
		entities, err := actx.Document.ByType(a.EntityType, a.Subtypes)
		if err != nil {
			return err
		}
		got = len(entities)
	}
	if got != a.Count {
		what := "entities"
		if a.EntityType != "" {
			what = a.EntityType + " entities"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertByType(a Assertion, actx *AssertionContext) error {
	entities, err := actx.Document.ByType(a.EntityType, a.Subtypes)
	if err != nil {
		return err
	}
	return compareIDs(a, actx, entities)
}

func assertInverse(a Assertion, actx *AssertionContext) error {
	e, found := actx.live(a.Entity)
	if !found {
		return &AssertionError{Type: a.Type, Expected: a.Entity + " in document", Actual: "not found"}
	}
	referrers, err := actx.Document.Inverse(e)
	if err != nil {
		return err
	}
	if err := compareIDs(a, actx, referrers); err != nil {
		return err
	}
	if a.Total != nil {
		if got := actx.Document.TotalInverses(e); got != *a.Total {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d references to %s", *a.Total, e.ID()),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
	}
	return nil
}

func assertTraverse(a Assertion, actx *AssertionContext) error {
	e, found := actx.live(a.Entity)
	if !found {
		return &AssertionError{Type: a.Type, Expected: a.Entity + " in document", Actual: "not found"}
	}
	levels := engine.Unbounded
	if a.Levels != nil {
		levels = *a.Levels
	}
	reached, err := actx.Document.Traverse(e, levels)
	if err != nil {
		return err
	}
	return compareIDs(a, actx, reached)
}

// compareIDs checks that entities are exactly a.Entities, in order.
func compareIDs(a Assertion, actx *AssertionContext, entities []*engine.Entity) error {
	want, err := actx.ids(a.Entities)
	if err != nil {
		return err
	}
	got := make([]ir.ID, len(entities))
	for i, e := range entities {
		got[i] = e.ID()
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: formatIDs(want),
			Actual:   formatIDs(got),
		}
	}
	return nil
}

func formatIDs(ids []ir.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// assertFingerprintStable undoes and redoes the last transaction and checks
// that the document fingerprint is unchanged. The document ends in the state
// it started in.
func assertFingerprintStable(actx *AssertionContext) error {
	doc := actx.Document
	before, err := doc.Fingerprint()
	if err != nil {
		return err
	}
	if err := doc.Undo(); err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	if err := doc.Redo(); err != nil {
		return fmt.Errorf("redo: %w", err)
	}
	after, err := doc.Fingerprint()
	if err != nil {
		return err
	}
	if before != after {
		return &AssertionError{
			Type:     AssertFingerprintStable,
			Expected: "fingerprint " + shortHash(before),
			Actual:   "fingerprint " + shortHash(after) + " after undo and redo",
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
