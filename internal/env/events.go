package env

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/bindlab/internal/value"
)

// EventKind identifies what an Event records.
type EventKind string

const (
	EventDeclare    EventKind = "declare"
	EventConst      EventKind = "const"
	EventAssign     EventKind = "assign"
	EventMutate     EventKind = "mutate"
	EventPrint      EventKind = "print"
	EventNote       EventKind = "note"
	EventScopeEnter EventKind = "scope_enter"
	EventScopeExit  EventKind = "scope_exit"
	EventCollect    EventKind = "collect"
)

// Mutation operations carried in Event.Op.
const (
	OpAppend   = "append"
	OpSetField = "set_field"
	OpSetIndex = "set_index"
)

// Event is one observable step of an environment.
type Event struct {
	Seq   int64
	Kind  EventKind
	Depth int // scope depth when emitted

	Name string // binding involved, if any
	Op   string // mutation operation for EventMutate
	Key  string // field key or decimal index for set_field / set_index
	Arg  string // rendered argument of a mutation

	// Value is the binding's value after the step; for mutations, the
	// aggregate that was mutated.
	Value   value.Value
	Display string
	Digest  string

	Count int    // append: new length; collect: reclaimed; scope_exit: depth left
	Text  string // note: the text; collect: live aggregates remaining
}

// Line renders the event as one transcript line, indented by scope depth.
func (e Event) Line() string {
	indent := strings.Repeat("  ", e.Depth)
	switch e.Kind {
	case EventDeclare:
		return fmt.Sprintf("%slet %s = %s", indent, e.Name, e.Display)
	case EventConst:
		return fmt.Sprintf("%sconst %s = %s", indent, e.Name, e.Display)
	case EventAssign:
		return fmt.Sprintf("%s%s = %s", indent, e.Name, e.Display)
	case EventPrint:
		return fmt.Sprintf("%s%s: %s", indent, e.Name, e.Display)
	case EventMutate:
		switch e.Op {
		case OpAppend:
			return fmt.Sprintf("%s%s.push(%s) returned %d", indent, e.Name, e.Arg, e.Count)
		case OpSetIndex:
			return fmt.Sprintf("%s%s[%s] = %s", indent, e.Name, e.Key, e.Arg)
		default:
			return fmt.Sprintf("%s%s%s = %s", indent, e.Name, accessor(e.Key), e.Arg)
		}
	case EventScopeEnter:
		return fmt.Sprintf("%s{ scope %d", strings.Repeat("  ", max(e.Depth-1, 0)), e.Depth)
	case EventScopeExit:
		return fmt.Sprintf("%s} scope %d", indent, e.Count)
	case EventCollect:
		return fmt.Sprintf("%scollect: reclaimed %d, live %s", indent, e.Count, e.Text)
	default:
		return indent + e.Text
	}
}

func accessor(key string) string {
	if isPlainKey(key) {
		return "." + key
	}
	return "[" + fmt.Sprintf("%q", key) + "]"
}

func isPlainKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Sink receives events from an Environment.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// TextSink writes each event's Line to w.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink returns a sink writing transcript lines to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, e.Line())
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Transcript joins the Line of every recorded event, one per line.
func (r *Recorder) Transcript() string {
	var b strings.Builder
	for _, e := range r.Events() {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// MultiSink fans each event out to every sink in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}
