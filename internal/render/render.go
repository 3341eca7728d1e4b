// Package render turns values into console text and plain snapshot trees.
//
// Inspect prints aggregates in literal form:
//
//	[ 10, 20, 30 ]
//	{ sensor: 'lidar', range_m: 10 }
//
// Aggregates may contain themselves. Both Inspect and Snapshot track the
// handles on the current path and print [Circular] instead of recursing,
// so a shared-but-acyclic aggregate still renders in full at every position.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/value"
)

// CircularMarker replaces a handle that already appears on the current path.
const CircularMarker = "[Circular]"

var plainKey = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Inspect renders v as the console would print it at top level:
// strings appear without quotes, aggregates in literal form.
func Inspect(s *heap.Store, v value.Value) string {
	if t, ok := v.(value.Text); ok {
		return string(t)
	}
	var b strings.Builder
	w := walker{store: s, path: map[value.Handle]bool{}}
	w.inspect(&b, v)
	return b.String()
}

// InspectNested renders v as it appears inside an aggregate:
// strings are single-quoted.
func InspectNested(s *heap.Store, v value.Value) string {
	var b strings.Builder
	w := walker{store: s, path: map[value.Handle]bool{}}
	w.inspect(&b, v)
	return b.String()
}

type walker struct {
	store *heap.Store
	path  map[value.Handle]bool
}

func (w *walker) inspect(b *strings.Builder, v value.Value) {
	switch x := v.(type) {
	case value.Text:
		b.WriteString(quote(string(x)))
	case value.Handle:
		w.inspectAggregate(b, x)
	default:
		b.WriteString(value.String(v))
	}
}

func (w *walker) inspectAggregate(b *strings.Builder, h value.Handle) {
	if w.path[h] {
		b.WriteString(CircularMarker)
		return
	}
	shape, err := w.store.Shape(h)
	if err != nil {
		fmt.Fprintf(b, "<reclaimed #%d>", uint64(h))
		return
	}

	w.path[h] = true
	defer delete(w.path, h)

	if shape == heap.ShapeSequence {
		elems, _ := w.store.Elements(h)
		if len(elems) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[ ")
		for i, e := range elems {
			if i > 0 {
				b.WriteString(", ")
			}
			w.inspect(b, e)
		}
		b.WriteString(" ]")
		return
	}

	fields, _ := w.store.Entries(h)
	if len(fields) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{ ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatKey(f.Key))
		b.WriteString(": ")
		w.inspect(b, f.Value)
	}
	b.WriteString(" }")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

func formatKey(k string) string {
	if plainKey.MatchString(k) {
		return k
	}
	return quote(k)
}
