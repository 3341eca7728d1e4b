package harness

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/value"
)

// Literal tags and escape keys.
const (
	TagUndefined = "!undefined"
	TagRef       = "!ref"

	// KeyRef and KeyUndefined spell the tagged forms as single-key mappings,
	// for sources that cannot carry YAML tags (JSON exported from CUE).
	KeyRef       = "$ref"
	KeyUndefined = "$undefined"
)

// Resolver supplies the value of a binding for !ref literals.
type Resolver interface {
	Read(name string) (value.Value, error)
}

// BuildLiteral converts a YAML node into a value, allocating aggregates in s.
//
//	scalars        number, string, bool, null
//	!undefined     the absent value
//	!ref name      the value currently bound to name (shares a handle)
//	[a, b]         a new sequence
//	{k: v}         a new record, keys in document order
//
// refs may be nil, in which case !ref is rejected.
func BuildLiteral(s *heap.Store, refs Resolver, n *yaml.Node) (value.Value, error) {
	v, _, err := buildLiteral(s, refs, n)
	return v, err
}

// buildLiteral is BuildLiteral that also returns every aggregate it allocated,
// so a caller can release them if the literal ends up unused. On error the
// partial allocations are already released.
func buildLiteral(s *heap.Store, refs Resolver, n *yaml.Node) (value.Value, []value.Handle, error) {
	b := literalBuilder{store: s, refs: refs, fresh: new([]value.Handle)}
	v, err := b.build(n)
	if err != nil {
		s.Release(*b.fresh...)
		return nil, nil, err
	}
	return v, *b.fresh, nil
}

type literalBuilder struct {
	store *heap.Store
	refs  Resolver
	fresh *[]value.Handle
}

func (b literalBuilder) track(h value.Handle, err error) (value.Value, error) {
	if err != nil {
		return nil, err
	}
	*b.fresh = append(*b.fresh, h)
	return h, nil
}

func (b literalBuilder) build(n *yaml.Node) (value.Value, error) {
	if n == nil {
		return nil, fmt.Errorf("missing literal")
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) != 1 {
			return nil, fmt.Errorf("line %d: empty document", n.Line)
		}
		return b.build(n.Content[0])
	case yaml.AliasNode:
		return b.build(n.Alias)
	case yaml.ScalarNode:
		return b.scalar(n)
	case yaml.SequenceNode:
		elems := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := b.build(c)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return b.track(b.store.NewSequence(elems...))
	case yaml.MappingNode:
		if v, ok, err := b.escaped(n); ok || err != nil {
			return v, err
		}
		fields := make([]heap.Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := b.build(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, heap.F(n.Content[i].Value, v))
		}
		return b.track(b.store.NewRecord(fields...))
	default:
		return nil, fmt.Errorf("line %d: unsupported literal", n.Line)
	}
}

func (b literalBuilder) scalar(n *yaml.Node) (value.Value, error) {
	switch n.Tag {
	case TagUndefined:
		return value.Undefined{}, nil
	case TagRef:
		return b.ref(n.Line, n.Value)
	}

	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var x bool
		if err := n.Decode(&x); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Bool(x), nil
	case "!!int", "!!float":
		var x float64
		if err := n.Decode(&x); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Number(x), nil
	case "!!str":
		return value.Text(n.Value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, n.Tag)
	}
}

// escaped recognises {$ref: name} and {$undefined: true}.
func (b literalBuilder) escaped(n *yaml.Node) (value.Value, bool, error) {
	if len(n.Content) != 2 {
		return nil, false, nil
	}
	key, val := n.Content[0].Value, n.Content[1]
	switch key {
	case KeyRef:
		v, err := b.ref(n.Line, val.Value)
		return v, true, err
	case KeyUndefined:
		return value.Undefined{}, true, nil
	}
	return nil, false, nil
}

func (b literalBuilder) ref(line int, name string) (value.Value, error) {
	if b.refs == nil {
		return nil, fmt.Errorf("line %d: %s is not allowed here", line, TagRef)
	}
	return b.refs.Read(name)
}
