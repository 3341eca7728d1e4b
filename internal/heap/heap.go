package heap

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/roach88/bindlab/internal/seq"
	"github.com/roach88/bindlab/internal/value"
)

// Shape distinguishes the two aggregate layouts.
type Shape uint8

const (
	// ShapeRecord is a named-field mapping with insertion-ordered keys.
	ShapeRecord Shape = iota + 1

	// ShapeSequence is an ordered, growable list of values.
	ShapeSequence
)

func (s Shape) String() string {
	switch s {
	case ShapeRecord:
		return "record"
	case ShapeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Field is a key-value pair for ordered record construction.
type Field struct {
	Key   string
	Value value.Value
}

// F is a shorthand for Field.
// Example: store.NewRecord(F("sensor", value.Text("lidar")), F("range_m", value.Number(10)))
func F(key string, v value.Value) Field {
	return Field{Key: key, Value: v}
}

type aggregate struct {
	mu     sync.Mutex
	id     value.Handle
	shape  Shape
	keys   []string
	fields map[string]value.Value
	elems  []value.Value
}

// Store owns every aggregate and hands out handles to them.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	ids    *seq.Clock
	aggs   map[value.Handle]*aggregate
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for allocation and reclamation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithFirstHandle makes the first allocated handle start+1.
// Useful for keeping handle numbers disjoint between stores.
func WithFirstHandle(start int64) Option {
	return func(s *Store) {
		s.ids = seq.NewClockAt(start)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		ids:    seq.NewClock(),
		aggs:   make(map[value.Handle]*aggregate),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRecord allocates a record with the given fields in order.
// A repeated key keeps its first position and takes the last value.
// Fails with INVALID_HANDLE if a field value is a handle the store does not hold.
func (s *Store) NewRecord(fields ...Field) (value.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := &aggregate{
		shape:  ShapeRecord,
		keys:   make([]string, 0, len(fields)),
		fields: make(map[string]value.Value, len(fields)),
	}
	for _, f := range fields {
		if err := s.checkStorableLocked("create", f.Value); err != nil {
			return 0, err
		}
		if _, exists := agg.fields[f.Key]; !exists {
			agg.keys = append(agg.keys, f.Key)
		}
		agg.fields[f.Key] = value.Copy(f.Value)
	}
	return s.registerLocked(agg), nil
}

// NewSequence allocates a sequence holding elems in order.
// Fails with INVALID_HANDLE if an element is a handle the store does not hold.
func (s *Store) NewSequence(elems ...value.Value) (value.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := &aggregate{
		shape: ShapeSequence,
		elems: make([]value.Value, 0, len(elems)),
	}
	for _, e := range elems {
		if err := s.checkStorableLocked("create", e); err != nil {
			return 0, err
		}
		agg.elems = append(agg.elems, value.Copy(e))
	}
	return s.registerLocked(agg), nil
}

func (s *Store) registerLocked(agg *aggregate) value.Handle {
	agg.id = value.Handle(s.ids.Next())
	s.aggs[agg.id] = agg
	s.logger.Debug("aggregate allocated", "handle", uint64(agg.id), "shape", agg.shape.String())
	return agg.id
}

// checkStorableLocked rejects nil values and dangling handles. Caller holds s.mu.
func (s *Store) checkStorableLocked(op string, v value.Value) error {
	if v == nil {
		return &value.Error{Code: value.ErrCodeWrongKind, Message: "nil is not a value", Op: op}
	}
	if h, ok := v.(value.Handle); ok {
		if _, live := s.aggs[h]; !live {
			return value.NewInvalidHandleError(op, h)
		}
	}
	return nil
}

// lookupLocked returns the aggregate for h. Caller holds s.mu (read or write).
func (s *Store) lookupLocked(op string, h value.Handle) (*aggregate, error) {
	agg, ok := s.aggs[h]
	if !ok {
		return nil, value.NewInvalidHandleError(op, h)
	}
	return agg, nil
}

// withAggregate runs fn with the aggregate locked and the handle table read-locked.
func (s *Store) withAggregate(op string, h value.Handle, fn func(*aggregate) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, err := s.lookupLocked(op, h)
	if err != nil {
		return err
	}
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return fn(agg)
}

// Contains reports whether h designates a live aggregate.
func (s *Store) Contains(h value.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.aggs[h]
	return ok
}

// Live returns the number of live aggregates.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.aggs)
}

// IdentityEquals reports whether both handles designate the same live aggregate.
func (s *Store) IdentityEquals(h1, h2 value.Handle) bool {
	return h1 == h2 && s.Contains(h1)
}

// Shape returns the layout of the aggregate behind h.
func (s *Store) Shape(h value.Handle) (Shape, error) {
	var shape Shape
	err := s.withAggregate("shape", h, func(agg *aggregate) error {
		shape = agg.shape
		return nil
	})
	return shape, err
}

// Len returns the number of fields of a record or elements of a sequence.
func (s *Store) Len(h value.Handle) (int, error) {
	var n int
	err := s.withAggregate("len", h, func(agg *aggregate) error {
		if agg.shape == ShapeRecord {
			n = len(agg.keys)
		} else {
			n = len(agg.elems)
		}
		return nil
	})
	return n, err
}

// elemIndex resolves key against a sequence. Only canonical decimal indices
// within bounds name an element; any other key is OUT_OF_RANGE.
// Caller holds agg.mu.
func (agg *aggregate) elemIndex(op, key string) (int, error) {
	i, err := strconv.Atoi(key)
	if err != nil || strconv.Itoa(i) != key {
		return 0, &value.Error{
			Code:    value.ErrCodeOutOfRange,
			Message: fmt.Sprintf("key %q is not an index of sequence of length %d", key, len(agg.elems)),
			Op:      op,
			Handle:  agg.id,
		}
	}
	if i < 0 || i >= len(agg.elems) {
		return 0, value.NewOutOfRangeError(op, agg.id, i, len(agg.elems))
	}
	return i, nil
}

// Field reads a record field. A missing key reads as Undefined.
// On a sequence, key must be an in-bounds decimal index.
func (s *Store) Field(h value.Handle, key string) (value.Value, error) {
	var out value.Value
	err := s.withAggregate("get_field", h, func(agg *aggregate) error {
		if agg.shape == ShapeSequence {
			i, err := agg.elemIndex("get_field", key)
			if err != nil {
				return err
			}
			out = value.Copy(agg.elems[i])
			return nil
		}
		v, ok := agg.fields[key]
		if !ok {
			out = value.Undefined{}
			return nil
		}
		out = value.Copy(v)
		return nil
	})
	return out, err
}

// SetField writes a record field in place, appending the key if it is new.
// On a sequence, key must be an in-bounds decimal index; a sequence never
// grows through SetField.
func (s *Store) SetField(h value.Handle, key string, v value.Value) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, err := s.lookupLocked("set_field", h)
	if err != nil {
		return err
	}
	if err := s.checkStorableLocked("set_field", v); err != nil {
		return err
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	if agg.shape == ShapeSequence {
		i, err := agg.elemIndex("set_field", key)
		if err != nil {
			return err
		}
		agg.elems[i] = value.Copy(v)
		return nil
	}
	if _, exists := agg.fields[key]; !exists {
		agg.keys = append(agg.keys, key)
	}
	agg.fields[key] = value.Copy(v)
	return nil
}

// Index reads a sequence element. i must lie in [0, len).
func (s *Store) Index(h value.Handle, i int) (value.Value, error) {
	var out value.Value
	err := s.withAggregate("get_index", h, func(agg *aggregate) error {
		if agg.shape != ShapeSequence {
			return value.NewWrongKindError("get_index", h, agg.shape.String())
		}
		if i < 0 || i >= len(agg.elems) {
			return value.NewOutOfRangeError("get_index", h, i, len(agg.elems))
		}
		out = value.Copy(agg.elems[i])
		return nil
	})
	return out, err
}

// SetIndex overwrites a sequence element in place. i must lie in [0, len);
// use Append to grow the sequence.
func (s *Store) SetIndex(h value.Handle, i int, v value.Value) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, err := s.lookupLocked("set_index", h)
	if err != nil {
		return err
	}
	if err := s.checkStorableLocked("set_index", v); err != nil {
		return err
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	if agg.shape != ShapeSequence {
		return value.NewWrongKindError("set_index", h, agg.shape.String())
	}
	if i < 0 || i >= len(agg.elems) {
		return value.NewOutOfRangeError("set_index", h, i, len(agg.elems))
	}
	agg.elems[i] = value.Copy(v)
	return nil
}

// Append adds v to the end of a sequence and returns the new length.
// Fails with WRONG_KIND on a record; the record is left unchanged.
func (s *Store) Append(h value.Handle, v value.Value) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, err := s.lookupLocked("append", h)
	if err != nil {
		return 0, err
	}
	if err := s.checkStorableLocked("append", v); err != nil {
		return 0, err
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()

	if agg.shape != ShapeSequence {
		return 0, value.NewWrongKindError("append", h, agg.shape.String())
	}
	agg.elems = append(agg.elems, value.Copy(v))
	return len(agg.elems), nil
}

// Keys returns a record's keys in insertion order.
func (s *Store) Keys(h value.Handle) ([]string, error) {
	var keys []string
	err := s.withAggregate("keys", h, func(agg *aggregate) error {
		if agg.shape != ShapeRecord {
			return value.NewWrongKindError("keys", h, agg.shape.String())
		}
		keys = slices.Clone(agg.keys)
		return nil
	})
	return keys, err
}

// Entries returns a record's fields in insertion order.
func (s *Store) Entries(h value.Handle) ([]Field, error) {
	var fields []Field
	err := s.withAggregate("entries", h, func(agg *aggregate) error {
		if agg.shape != ShapeRecord {
			return value.NewWrongKindError("entries", h, agg.shape.String())
		}
		fields = make([]Field, len(agg.keys))
		for i, k := range agg.keys {
			fields[i] = Field{Key: k, Value: agg.fields[k]}
		}
		return nil
	})
	return fields, err
}

// Elements returns a copy of a sequence's elements.
// The returned slice is detached: writing to it does not touch the aggregate.
func (s *Store) Elements(h value.Handle) ([]value.Value, error) {
	var elems []value.Value
	err := s.withAggregate("elements", h, func(agg *aggregate) error {
		if agg.shape != ShapeSequence {
			return value.NewWrongKindError("elements", h, agg.shape.String())
		}
		elems = slices.Clone(agg.elems)
		return nil
	})
	return elems, err
}
