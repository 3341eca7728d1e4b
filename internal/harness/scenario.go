package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindlab/internal/value"
)

// Scenario is a scripted demonstration of binding semantics.
// Steps run in order against a fresh environment; assertions are then
// evaluated against the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// RunID is an optional fixed run id. If empty, the runner's generator is used.
	RunID string `yaml:"run_id,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final environment.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation against the environment. Exactly one action key
// (note, declare, const, assign, append, set, read, print, compare, scope,
// collect) must be present; the remaining fields qualify it.
type Step struct {
	Note    string   `yaml:"note,omitempty"`
	Declare string   `yaml:"declare,omitempty"`
	Const   string   `yaml:"const,omitempty"`
	Assign  string   `yaml:"assign,omitempty"`
	Append  string   `yaml:"append,omitempty"`
	Set     string   `yaml:"set,omitempty"`
	Read    string   `yaml:"read,omitempty"`
	Print   string   `yaml:"print,omitempty"`
	Compare []string `yaml:"compare,omitempty"`
	Scope   string   `yaml:"scope,omitempty"`
	Collect bool     `yaml:"collect,omitempty"`

	// Value is the literal operand. See BuildLiteral for the literal forms.
	Value yaml.Node `yaml:"value,omitempty"`

	// From names a binding whose current value is the operand instead of Value.
	From string `yaml:"from,omitempty"`

	// Field and Index select an element for set and read.
	Field string `yaml:"field,omitempty"`
	Index *int   `yaml:"index,omitempty"`

	// Expect is the value a read step must observe.
	Expect yaml.Node `yaml:"expect,omitempty"`

	// Error is the error code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Step kinds returned by Step.Kind.
const (
	StepNote    = "note"
	StepDeclare = "declare"
	StepConst   = "const"
	StepAssign  = "assign"
	StepAppend  = "append"
	StepSet     = "set"
	StepRead    = "read"
	StepPrint   = "print"
	StepCompare = "compare"
	StepScope   = "scope"
	StepCollect = "collect"
)

// Kind returns the step's action key, or "" if none or several are set.
func (s Step) Kind() string {
	var kinds []string
	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}
	add(s.Note != "", StepNote)
	add(s.Declare != "", StepDeclare)
	add(s.Const != "", StepConst)
	add(s.Assign != "", StepAssign)
	add(s.Append != "", StepAppend)
	add(s.Set != "", StepSet)
	add(s.Read != "", StepRead)
	add(s.Print != "", StepPrint)
	add(len(s.Compare) > 0, StepCompare)
	add(s.Scope != "", StepScope)
	add(s.Collect, StepCollect)
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Target returns the binding name the step acts on.
func (s Step) Target() string {
	switch s.Kind() {
	case StepDeclare:
		return s.Declare
	case StepConst:
		return s.Const
	case StepAssign:
		return s.Assign
	case StepAppend:
		return s.Append
	case StepSet:
		return s.Set
	case StepRead:
		return s.Read
	case StepPrint:
		return s.Print
	}
	return ""
}

// Describe returns a short label such as "append command_buffer" or "scope exit".
func (s Step) Describe() string {
	kind := s.Kind()
	switch kind {
	case StepScope:
		return "scope " + s.Scope
	case StepCompare:
		return "compare " + strings.Join(s.Compare, " ")
	case StepNote, StepCollect, "":
		return kind
	}
	return kind + " " + s.Target()
}

// Assertion validates the environment after all steps have run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is the binding under test (value_equals, type_of, unbound, length).
	Name string `yaml:"name,omitempty"`

	// Names lists two or more bindings (same_reference, distinct_reference).
	Names []string `yaml:"names,omitempty"`

	// Expect is the expected literal (value_equals) or typeof label (type_of).
	Expect yaml.Node `yaml:"expect,omitempty"`

	// Count is the expected length (length) or live aggregate count (live_aggregates).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSameReference     = "same_reference"
	AssertDistinctReference = "distinct_reference"
	AssertValueEquals       = "value_equals"
	AssertTypeOf            = "type_of"
	AssertUnbound           = "unbound"
	AssertLength            = "length"
	AssertLiveAggregates    = "live_aggregates"
)

var scenarioName = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// LoadScenario reads a scenario file. Files ending in .cue are compiled and
// validated with CUE; everything else is parsed as YAML.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUEScenario(data, path)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML scenario bytes.
// Unknown fields are rejected so that typos fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !scenarioName.MatchString(s.Name) {
		return fmt.Errorf("name %q must be lower_snake_case", s.Name)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	kind := s.Kind()
	if kind == "" {
		return fmt.Errorf("steps[%d]: exactly one action key is required", index)
	}
	if s.Error != "" {
		if _, err := value.ParseErrorCode(s.Error); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}

	hasOperand := isSet(s.Value) || s.From != ""
	if isSet(s.Value) && s.From != "" {
		return fmt.Errorf("steps[%d]: value and from are mutually exclusive", index)
	}
	if s.Field != "" && s.Index != nil {
		return fmt.Errorf("steps[%d]: field and index are mutually exclusive", index)
	}

	switch kind {
	case StepDeclare, StepConst, StepAssign, StepAppend:
		if !hasOperand {
			return fmt.Errorf("steps[%d]: %s requires value or from", index, kind)
		}
	case StepSet:
		if !hasOperand {
			return fmt.Errorf("steps[%d]: set requires value or from", index)
		}
		if s.Field == "" && s.Index == nil {
			return fmt.Errorf("steps[%d]: set requires field or index", index)
		}
	case StepRead:
		if hasOperand {
			return fmt.Errorf("steps[%d]: read takes no operand", index)
		}
	case StepCompare:
		if len(s.Compare) != 2 {
			return fmt.Errorf("steps[%d]: compare requires exactly two names", index)
		}
	case StepScope:
		if s.Scope != "enter" && s.Scope != "exit" {
			return fmt.Errorf("steps[%d]: scope must be enter or exit, got %q", index, s.Scope)
		}
	}
	if isSet(s.Expect) && kind != StepRead {
		return fmt.Errorf("steps[%d]: expect is only valid on read", index)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSameReference, AssertDistinctReference:
		if len(a.Names) < 2 {
			return fmt.Errorf("assertions[%d]: names needs at least two bindings for %s", index, a.Type)
		}
	case AssertValueEquals, AssertTypeOf:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for %s", index, a.Type)
		}
		if !isSet(a.Expect) {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertUnbound:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for unbound", index)
		}
	case AssertLength:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for length", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for length", index)
		}
	case AssertLiveAggregates:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for live_aggregates", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// isSet reports whether a literal field was present in the document.
func isSet(n yaml.Node) bool {
	return n.Kind != 0
}
