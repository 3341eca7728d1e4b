package env

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/render"
	"github.com/roach88/bindlab/internal/seq"
	"github.com/roach88/bindlab/internal/value"
)

// Binding is a name-to-value association inside one scope.
type Binding struct {
	Name     string
	Value    value.Value
	Constant bool
	Depth    int // 0 for the global scope
}

type scope struct {
	parent   *scope
	depth    int
	bindings map[string]*Binding
	order    []string
}

func newScope(parent *scope) *scope {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &scope{
		parent:   parent,
		depth:    depth,
		bindings: make(map[string]*Binding),
	}
}

// Environment is a chain of scopes over one aggregate store.
//
// Thread-safety: an Environment is not safe for concurrent use. The store it
// wraps is, so several environments may share one store.
type Environment struct {
	store  *heap.Store
	scope  *scope
	sink   Sink
	clock  seq.Source
	logger *slog.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithSink sets the destination for emitted events. Default: Discard.
func WithSink(s Sink) Option {
	return func(e *Environment) {
		e.sink = s
	}
}

// WithClock sets the sequence source stamped on events. Default: a fresh seq.Clock.
func WithClock(c seq.Source) Option {
	return func(e *Environment) {
		e.clock = c
	}
}

// WithLogger sets the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = l
	}
}

// New creates an environment with an empty global scope over store.
func New(store *heap.Store, opts ...Option) *Environment {
	e := &Environment{
		store:  store,
		scope:  newScope(nil),
		sink:   Discard,
		clock:  seq.NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the aggregate store behind the environment.
func (e *Environment) Store() *heap.Store {
	return e.store
}

// Depth returns the nesting depth of the active scope (0 = global).
func (e *Environment) Depth() int {
	return e.scope.depth
}

func (e *Environment) resolve(name string) *Binding {
	for s := e.scope; s != nil; s = s.parent {
		if b, ok := s.bindings[name]; ok {
			return b
		}
	}
	return nil
}

// admit applies the copy-or-share rule: primitives are copied, handles are
// stored as-is after checking they are live.
func (e *Environment) admit(op, name string, v value.Value) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, &value.Error{Code: value.ErrCodeWrongKind, Message: "nil is not a value", Op: op, Name: name}
	case value.Handle:
		if !e.store.Contains(x) {
			err := value.NewInvalidHandleError(op, x)
			err.Name = name
			return nil, err
		}
		return x, nil
	default:
		return value.Copy(x), nil
	}
}

// Declare creates a binding in the active scope.
func (e *Environment) Declare(name string, v value.Value) error {
	return e.declare("declare", name, v, false)
}

// DeclareConst creates a binding that Assign refuses to rebind.
// An aggregate held by a constant binding remains mutable.
func (e *Environment) DeclareConst(name string, v value.Value) error {
	return e.declare("const", name, v, true)
}

func (e *Environment) declare(op, name string, v value.Value, constant bool) error {
	if name == "" {
		return &value.Error{Code: value.ErrCodeInvalidName, Message: "binding name must not be empty", Op: op}
	}
	if _, exists := e.scope.bindings[name]; exists {
		return &value.Error{
			Code:    value.ErrCodeDuplicateBinding,
			Message: fmt.Sprintf("already declared in scope %d", e.scope.depth),
			Op:      op,
			Name:    name,
		}
	}
	stored, err := e.admit(op, name, v)
	if err != nil {
		return err
	}

	b := &Binding{Name: name, Value: stored, Constant: constant, Depth: e.scope.depth}
	e.scope.bindings[name] = b
	e.scope.order = append(e.scope.order, name)

	kind := EventDeclare
	if constant {
		kind = EventConst
	}
	e.emit(Event{Kind: kind, Name: name, Value: stored})
	return nil
}

// Assign rebinds the nearest binding named name. The previous value is not
// mutated, and no other binding is affected.
func (e *Environment) Assign(name string, v value.Value) error {
	b := e.resolve(name)
	if b == nil {
		return value.NewUnboundNameError("assign", name)
	}
	if b.Constant {
		return &value.Error{
			Code:    value.ErrCodeConstantAssignment,
			Message: "assignment to constant binding",
			Op:      "assign",
			Name:    name,
		}
	}
	stored, err := e.admit("assign", name, v)
	if err != nil {
		return err
	}
	b.Value = stored
	e.emit(Event{Kind: EventAssign, Name: name, Value: stored})
	return nil
}

// Read returns the value bound to name in the scope chain.
func (e *Environment) Read(name string) (value.Value, error) {
	b := e.resolve(name)
	if b == nil {
		return nil, value.NewUnboundNameError("read", name)
	}
	return value.Copy(b.Value), nil
}

// Lookup returns a copy of the binding for name.
func (e *Environment) Lookup(name string) (Binding, bool) {
	b := e.resolve(name)
	if b == nil {
		return Binding{}, false
	}
	return *b, true
}

// Print emits the current value of name as a console line.
func (e *Environment) Print(name string) error {
	v, err := e.Read(name)
	if err != nil {
		return err
	}
	e.emit(Event{Kind: EventPrint, Name: name, Value: v})
	return nil
}

// Note emits a free-form line, such as a section banner.
func (e *Environment) Note(text string) {
	e.emit(Event{Kind: EventNote, Text: text})
}

// PushScope opens a nested scope.
func (e *Environment) PushScope() {
	e.scope = newScope(e.scope)
	e.emit(Event{Kind: EventScopeEnter})
}

// PopScope ends the active scope; its bindings cease to exist.
func (e *Environment) PopScope() error {
	if e.scope.parent == nil {
		return &value.Error{Code: value.ErrCodeScopeUnderflow, Message: "cannot pop the global scope", Op: "scope_exit"}
	}
	depth := e.scope.depth
	e.scope = e.scope.parent
	e.emit(Event{Kind: EventScopeExit, Count: depth})
	return nil
}

// Names returns every visible binding name, sorted. Shadowed outer bindings
// are reported once.
func (e *Environment) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for s := e.scope; s != nil; s = s.parent {
		for _, n := range s.order {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Roots returns the handles held by every binding in the chain, including
// shadowed ones, which stay alive until their scope ends.
func (e *Environment) Roots() []value.Handle {
	var roots []value.Handle
	for s := e.scope; s != nil; s = s.parent {
		for _, n := range s.order {
			if h, ok := s.bindings[n].Value.(value.Handle); ok {
				roots = append(roots, h)
			}
		}
	}
	return roots
}

// SameReference reports whether bindings a and b hold the same aggregate.
// Primitive bindings are never the same reference, even when equal.
func (e *Environment) SameReference(a, b string) (bool, error) {
	va, err := e.Read(a)
	if err != nil {
		return false, err
	}
	vb, err := e.Read(b)
	if err != nil {
		return false, err
	}
	ha, okA := va.(value.Handle)
	hb, okB := vb.(value.Handle)
	if !okA || !okB {
		return false, nil
	}
	return e.store.IdentityEquals(ha, hb), nil
}

// Aliases returns the other visible names bound to the same aggregate as name, sorted.
func (e *Environment) Aliases(name string) ([]string, error) {
	v, err := e.Read(name)
	if err != nil {
		return nil, err
	}
	h, ok := v.(value.Handle)
	if !ok {
		return []string{}, nil
	}
	aliases := []string{}
	for _, n := range e.Names() {
		if n == name {
			continue
		}
		if b := e.resolve(n); b != nil && value.Equals(b.Value, h) {
			aliases = append(aliases, n)
		}
	}
	return aliases, nil
}

// Collect reclaims every aggregate unreachable from live bindings and
// returns the number reclaimed.
func (e *Environment) Collect() int {
	reclaimed := e.store.Sweep(e.Roots())
	e.emit(Event{Kind: EventCollect, Count: reclaimed, Text: strconv.Itoa(e.store.Live())})
	return reclaimed
}

// aggregateOf resolves name to the handle it holds.
// A primitive binding fails with WRONG_KIND.
func (e *Environment) aggregateOf(op, name string) (value.Handle, error) {
	v, err := e.Read(name)
	if err != nil {
		return 0, err
	}
	h, ok := v.(value.Handle)
	if !ok {
		return 0, &value.Error{
			Code:    value.ErrCodeWrongKind,
			Message: fmt.Sprintf("%s not supported on %s", op, value.TypeOf(v)),
			Op:      op,
			Name:    name,
		}
	}
	return h, nil
}

// Append pushes v onto the sequence held by name and returns the new length.
func (e *Environment) Append(name string, v value.Value) (int, error) {
	h, err := e.aggregateOf("append", name)
	if err != nil {
		return 0, err
	}
	n, err := e.store.Append(h, v)
	if err != nil {
		return 0, e.annotate(err, name)
	}
	e.emit(Event{Kind: EventMutate, Op: OpAppend, Name: name, Value: h, Arg: render.InspectNested(e.store, v), Count: n})
	return n, nil
}

// SetField writes key on the record held by name.
func (e *Environment) SetField(name, key string, v value.Value) error {
	h, err := e.aggregateOf("set_field", name)
	if err != nil {
		return err
	}
	if err := e.store.SetField(h, key, v); err != nil {
		return e.annotate(err, name)
	}
	e.emit(Event{Kind: EventMutate, Op: OpSetField, Name: name, Key: key, Value: h, Arg: render.InspectNested(e.store, v)})
	return nil
}

// SetIndex overwrites element i of the sequence held by name.
func (e *Environment) SetIndex(name string, i int, v value.Value) error {
	h, err := e.aggregateOf("set_index", name)
	if err != nil {
		return err
	}
	if err := e.store.SetIndex(h, i, v); err != nil {
		return e.annotate(err, name)
	}
	e.emit(Event{Kind: EventMutate, Op: OpSetIndex, Name: name, Key: strconv.Itoa(i), Value: h, Arg: render.InspectNested(e.store, v)})
	return nil
}

// Field reads key from the record held by name.
func (e *Environment) Field(name, key string) (value.Value, error) {
	h, err := e.aggregateOf("get_field", name)
	if err != nil {
		return nil, err
	}
	v, err := e.store.Field(h, key)
	return v, e.annotate(err, name)
}

// Index reads element i of the sequence held by name.
func (e *Environment) Index(name string, i int) (value.Value, error) {
	h, err := e.aggregateOf("get_index", name)
	if err != nil {
		return nil, err
	}
	v, err := e.store.Index(h, i)
	return v, e.annotate(err, name)
}

// Len returns the size of the aggregate held by name.
func (e *Environment) Len(name string) (int, error) {
	h, err := e.aggregateOf("len", name)
	if err != nil {
		return 0, err
	}
	n, err := e.store.Len(h)
	return n, e.annotate(err, name)
}

// annotate attaches the binding name to store errors, which only know handles.
func (e *Environment) annotate(err error, name string) error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*value.Error); ok && ve.Name == "" {
		cp := *ve
		cp.Name = name
		return &cp
	}
	return err
}

func (e *Environment) emit(ev Event) {
	ev.Seq = e.clock.Next()
	ev.Depth = e.scope.depth
	if ev.Value != nil {
		if ev.Kind == EventPrint {
			ev.Display = render.Inspect(e.store, ev.Value)
		} else {
			ev.Display = render.InspectNested(e.store, ev.Value)
		}
		if d, err := render.Digest(e.store, ev.Value); err == nil {
			ev.Digest = d
		}
	}
	e.logger.Debug("binding event", "seq", ev.Seq, "kind", string(ev.Kind), "name", ev.Name)
	e.sink.Emit(ev)
}
