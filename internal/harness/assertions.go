package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/render"
	"github.com/roach88/bindlab/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Bindings []string // visible names at evaluation time, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	if len(e.Bindings) > 0 {
		fmt.Fprintf(&buf, "\n  Bindings: %s", strings.Join(e.Bindings, ", "))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(e *env.Environment, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(e, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(e *env.Environment, a Assertion) error {
	switch a.Type {
	case AssertSameReference:
		return assertReferences(e, a, true)
	case AssertDistinctReference:
		return assertReferences(e, a, false)
	case AssertValueEquals:
		return assertValueEquals(e, a)
	case AssertTypeOf:
		return assertTypeOf(e, a)
	case AssertUnbound:
		return assertUnbound(e, a)
	case AssertLength:
		return assertLength(e, a)
	case AssertLiveAggregates:
		return assertLiveAggregates(e, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertReferences checks that every listed binding holds the same aggregate
// as the first (want=true), or that no two of them do (want=false).
func assertReferences(e *env.Environment, a Assertion, want bool) error {
	for i := 0; i < len(a.Names); i++ {
		for j := i + 1; j < len(a.Names); j++ {
			if want && i > 0 {
				break
			}
			same, err := e.SameReference(a.Names[i], a.Names[j])
			if err != nil {
				return err
			}
			if same != want {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s === %s is %t", a.Names[i], a.Names[j], want),
					Actual:   fmt.Sprint(same),
					Bindings: e.Names(),
				}
			}
		}
	}
	return nil
}

func assertValueEquals(e *env.Environment, a Assertion) error {
	v, err := e.Read(a.Name)
	if err != nil {
		return err
	}
	if err := matchLiteral(e.Store(), v, &a.Expect); err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s to match literal", a.Name),
			Actual:   err.Error(),
		}
	}
	return nil
}

func assertTypeOf(e *env.Environment, a Assertion) error {
	v, err := e.Read(a.Name)
	if err != nil {
		return err
	}
	if got := value.TypeOf(v); got != a.Expect.Value {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("typeof %s == %q", a.Name, a.Expect.Value),
			Actual:   fmt.Sprintf("%q (%s)", got, render.InspectNested(e.Store(), v)),
		}
	}
	return nil
}

func assertUnbound(e *env.Environment, a Assertion) error {
	v, err := e.Read(a.Name)
	if value.IsUnboundName(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s to be unbound", a.Name),
		Actual:   "bound to " + render.InspectNested(e.Store(), v),
		Bindings: e.Names(),
	}
}

func assertLength(e *env.Environment, a Assertion) error {
	n, err := e.Len(a.Name)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("len(%s) == %d", a.Name, *a.Count),
			Actual:   fmt.Sprint(n),
		}
	}
	return nil
}

func assertLiveAggregates(e *env.Environment, a Assertion) error {
	if n := e.Store().Live(); n != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d live aggregates", *a.Count),
			Actual:   fmt.Sprint(n),
		}
	}
	return nil
}
