package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindlab/internal/harness"
)

const ident = `[A-Za-z_$][A-Za-z0-9_$]*`

// selector matches an optional .key, [index] or ["key"] suffix.
const selector = `(?:\.(` + ident + `)|\[(-?\d+)\]|\[("(?:[^"\\]|\\.)*")\])?`

var (
	identRe   = regexp.MustCompile(`^` + ident + `$`)
	declRe    = regexp.MustCompile(`^(let|const)\s+(` + ident + `)\s*=\s*(.+)$`)
	pushRe    = regexp.MustCompile(`^(` + ident + `)\.push\((.+)\)$`)
	compareRe = regexp.MustCompile(`^(` + ident + `)\s*===\s*(` + ident + `)$`)
	assignRe  = regexp.MustCompile(`^(` + ident + `)` + selector + `\s*=\s*(.+)$`)
	readRe    = regexp.MustCompile(`^(` + ident + `)` + selector + `$`)
	printRe   = regexp.MustCompile(`^print\s+(` + ident + `)$`)
)

// keywords are operands that parse as literals even though they look like names.
var keywords = map[string]bool{
	"true":      true,
	"false":     true,
	"null":      true,
	"undefined": true,
}

// ParseLine translates one line of REPL input into a step:
//
//	let a = [1, 2]      declare          const c = {k: 1}   const
//	a = 3               assign           a.push(4)          append
//	a.k = v, a[0] = v   set              print a            print
//	a, a.k, a[0]        read             a === b            compare
//	{ and }             scope            collect            collect
//	# text              note
//
// An operand that is a bare name reads that binding, so "let b = a" makes b
// an alias when a holds an aggregate. Anything else is a YAML flow literal;
// strings must be quoted and undefined is spelled undefined.
func ParseLine(line string) (harness.Step, error) {
	src := strings.TrimSpace(line)
	src = strings.TrimSuffix(src, ";")
	src = strings.TrimSpace(src)

	switch {
	case src == "":
		return harness.Step{}, fmt.Errorf("empty input")
	case src == "{":
		return harness.Step{Scope: "enter"}, nil
	case src == "}":
		return harness.Step{Scope: "exit"}, nil
	case src == "collect":
		return harness.Step{Collect: true}, nil
	case strings.HasPrefix(src, "#"):
		text := strings.TrimSpace(strings.TrimPrefix(src, "#"))
		if text == "" {
			return harness.Step{}, fmt.Errorf("empty note")
		}
		return harness.Step{Note: text}, nil
	}

	if m := declRe.FindStringSubmatch(src); m != nil {
		step := harness.Step{}
		if m[1] == "const" {
			step.Const = m[2]
		} else {
			step.Declare = m[2]
		}
		return step, parseOperand(m[3], &step)
	}
	if m := printRe.FindStringSubmatch(src); m != nil {
		return harness.Step{Print: m[1]}, nil
	}
	if m := compareRe.FindStringSubmatch(src); m != nil {
		return harness.Step{Compare: []string{m[1], m[2]}}, nil
	}
	if m := pushRe.FindStringSubmatch(src); m != nil {
		if hasTopLevelComma(m[2]) {
			return harness.Step{}, fmt.Errorf("push takes one argument in %q", src)
		}
		step := harness.Step{Append: m[1]}
		return step, parseOperand(m[2], &step)
	}
	if m := assignRe.FindStringSubmatch(src); m != nil {
		rhs := strings.TrimSpace(m[5])
		if strings.HasPrefix(rhs, "=") {
			return harness.Step{}, fmt.Errorf("unsupported operator in %q", src)
		}
		step := harness.Step{}
		selected, err := applySelector(&step, m[2], m[3], m[4])
		if err != nil {
			return harness.Step{}, err
		}
		if selected {
			step.Set = m[1]
		} else {
			step.Assign = m[1]
		}
		return step, parseOperand(rhs, &step)
	}
	if m := readRe.FindStringSubmatch(src); m != nil {
		step := harness.Step{Read: m[1]}
		if _, err := applySelector(&step, m[2], m[3], m[4]); err != nil {
			return harness.Step{}, err
		}
		return step, nil
	}
	return harness.Step{}, fmt.Errorf("cannot parse %q", src)
}

// applySelector sets Field or Index from the captured selector groups and
// reports whether one was present.
func applySelector(step *harness.Step, dotKey, index, quotedKey string) (bool, error) {
	switch {
	case dotKey != "":
		step.Field = dotKey
	case index != "":
		i, err := strconv.Atoi(index)
		if err != nil {
			return false, fmt.Errorf("invalid index %q: %w", index, err)
		}
		step.Index = &i
	case quotedKey != "":
		key, err := strconv.Unquote(quotedKey)
		if err != nil {
			return false, fmt.Errorf("invalid key %s: %w", quotedKey, err)
		}
		if key == "" {
			return false, fmt.Errorf("empty key")
		}
		step.Field = key
	default:
		return false, nil
	}
	return true, nil
}

// parseOperand sets step.From for a bare binding name and step.Value otherwise.
func parseOperand(src string, step *harness.Step) error {
	src = strings.TrimSpace(src)
	if identRe.MatchString(src) && !keywords[src] {
		step.From = src
		return nil
	}
	if src == "undefined" {
		step.Value = yaml.Node{Kind: yaml.ScalarNode, Tag: harness.TagUndefined}
		return nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		return fmt.Errorf("invalid literal %q: %w", src, err)
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) != 1 {
		return fmt.Errorf("invalid literal %q", src)
	}
	step.Value = *node.Content[0]
	return nil
}

// hasTopLevelComma reports whether s has a comma outside brackets, braces
// and quoted strings.
func hasTopLevelComma(s string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' && quote == '"' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '{' || r == '(':
			depth++
		case r == ']' || r == '}' || r == ')':
			depth--
		case r == ',' && depth == 0:
			return true
		}
	}
	return false
}
