package value

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing anything a binding can hold.
// Only Number, Text, Bool, Null, Undefined, and Handle implement this.
type Value interface {
	value() // Sealed - only these types implement it
}

// Number represents a numeric primitive. There is no separate integer type.
type Number float64

func (Number) value() {}

// Text represents a string primitive.
type Text string

func (Text) value() {}

// Bool represents a boolean primitive.
type Bool bool

func (Bool) value() {}

// Null represents the intentional absence of any object value.
type Null struct{}

func (Null) value() {}

// Undefined represents a declared binding that was never given a value.
type Undefined struct{}

func (Undefined) value() {}

// Handle is an opaque identity for one aggregate in a heap.Store.
// The zero Handle never designates an aggregate.
type Handle uint64

func (Handle) value() {}

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindText
	KindBool
	KindNull
	KindUndefined
	KindHandle
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindNumber:    "number",
	KindText:      "text",
	KindBool:      "bool",
	KindNull:      "null",
	KindUndefined: "undefined",
	KindHandle:    "handle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindOf returns the variant of v. A nil Value reports KindInvalid.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Number:
		return KindNumber
	case Text:
		return KindText
	case Bool:
		return KindBool
	case Null:
		return KindNull
	case Undefined:
		return KindUndefined
	case Handle:
		return KindHandle
	default:
		return KindInvalid
	}
}

// IsPrimitive reports whether v is copied by value on assignment.
func IsPrimitive(v Value) bool {
	switch v.(type) {
	case Number, Text, Bool, Null, Undefined:
		return true
	default:
		return false
	}
}

// AsHandle returns the handle held by v, if any.
func AsHandle(v Value) (Handle, bool) {
	h, ok := v.(Handle)
	return h, ok
}

// TypeOf returns the scripting-language typeof label for v.
// Null reports "object", matching the long-standing language quirk.
func TypeOf(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Text:
		return "string"
	case Bool:
		return "boolean"
	case Undefined:
		return "undefined"
	case Null, Handle:
		return "object"
	default:
		return "invalid"
	}
}

// Copy returns a value equal to p that shares no storage with it.
// Go strings and numbers are immutable, so the copy is the value itself;
// a Handle copies as the same identity.
func Copy(p Value) Value {
	switch v := p.(type) {
	case Number:
		return Number(float64(v))
	case Text:
		return Text(string(v))
	case Bool:
		return Bool(bool(v))
	case Null:
		return Null{}
	case Undefined:
		return Undefined{}
	case Handle:
		return v
	default:
		return Undefined{}
	}
}

// Equals compares two values without coercion.
// Primitives compare by value (NaN equals NaN), handles by identity.
func Equals(a, b Value) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Null:
		_, ok := b.(Null)
		return ok
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case Handle:
		y, ok := b.(Handle)
		return ok && x == y
	default:
		return false
	}
}

// FormatNumber renders n the way the scripting console does:
// integral values without a fraction, everything else in shortest form.
func FormatNumber(n Number) string {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String renders a primitive for diagnostics. Handles render as "#<id>".
func String(v Value) string {
	switch x := v.(type) {
	case Number:
		return FormatNumber(x)
	case Text:
		return string(x)
	case Bool:
		return strconv.FormatBool(bool(x))
	case Null:
		return "null"
	case Undefined:
		return "undefined"
	case Handle:
		return fmt.Sprintf("#%d", uint64(x))
	default:
		return fmt.Sprintf("<invalid %T>", v)
	}
}
