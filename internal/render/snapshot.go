package render

import (
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/value"
)

// Snapshot converts v into a plain tree of nil, bool, float64, string,
// []any, and map[string]any suitable for value.MarshalCanonical.
//
// Null and Undefined both become nil. A handle already on the current path
// becomes the string CircularMarker. A reclaimed handle is an error.
func Snapshot(s *heap.Store, v value.Value) (any, error) {
	w := walker{store: s, path: map[value.Handle]bool{}}
	return w.snapshot(v)
}

func (w *walker) snapshot(v value.Value) (any, error) {
	switch x := v.(type) {
	case value.Number:
		return float64(x), nil
	case value.Text:
		return string(x), nil
	case value.Bool:
		return bool(x), nil
	case value.Null, value.Undefined:
		return nil, nil
	case value.Handle:
		return w.snapshotAggregate(x)
	default:
		return nil, &value.Error{Code: value.ErrCodeWrongKind, Message: "nil is not a value", Op: "snapshot"}
	}
}

func (w *walker) snapshotAggregate(h value.Handle) (any, error) {
	if w.path[h] {
		return CircularMarker, nil
	}
	shape, err := w.store.Shape(h)
	if err != nil {
		return nil, err
	}

	w.path[h] = true
	defer delete(w.path, h)

	if shape == heap.ShapeSequence {
		elems, err := w.store.Elements(h)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			if out[i], err = w.snapshot(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	fields, err := w.store.Entries(h)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if out[f.Key], err = w.snapshot(f.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Digest returns the canonical content digest of v.
func Digest(s *heap.Store, v value.Value) (string, error) {
	snap, err := Snapshot(s, v)
	if err != nil {
		return "", err
	}
	return value.Digest(snap)
}
