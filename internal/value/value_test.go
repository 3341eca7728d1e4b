package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Number(42)
	var _ Value = Text("lidar")
	var _ Value = Bool(true)
	var _ Value = Null{}
	var _ Value = Undefined{}
	var _ Value = Handle(1)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		v    Value
		want Kind
	}{
		{Number(1), KindNumber},
		{Text("a"), KindText},
		{Bool(false), KindBool},
		{Null{}, KindNull},
		{Undefined{}, KindUndefined},
		{Handle(7), KindHandle},
		{nil, KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.v))
		})
	}
}

func TestIsPrimitive(t *testing.T) {
	assert.True(t, IsPrimitive(Number(0)))
	assert.True(t, IsPrimitive(Text("")))
	assert.True(t, IsPrimitive(Bool(true)))
	assert.True(t, IsPrimitive(Null{}))
	assert.True(t, IsPrimitive(Undefined{}))
	assert.False(t, IsPrimitive(Handle(1)))
	assert.False(t, IsPrimitive(nil))
}

func TestTypeOf(t *testing.T) {
	// Labels match the typeof operator of the teaching corpus
	assert.Equal(t, "number", TypeOf(Number(42)))
	assert.Equal(t, "number", TypeOf(Number(42.5)))
	assert.Equal(t, "string", TypeOf(Text("A")))
	assert.Equal(t, "string", TypeOf(Text("")))
	assert.Equal(t, "boolean", TypeOf(Bool(false)))
	assert.Equal(t, "undefined", TypeOf(Undefined{}))
	assert.Equal(t, "object", TypeOf(Null{}), "null reports object")
	assert.Equal(t, "object", TypeOf(Handle(3)))
}

func TestCopy_PrimitivesEqualSource(t *testing.T) {
	prims := []Value{
		Number(10), Number(-0.5), Number(math.NaN()),
		Text("var a1"), Text(""),
		Bool(true), Null{}, Undefined{},
	}

	for _, p := range prims {
		c := Copy(p)
		assert.True(t, Equals(p, c), "copy of %v should equal source", String(p))
		assert.Equal(t, KindOf(p), KindOf(c))
	}
}

func TestCopy_HandleKeepsIdentity(t *testing.T) {
	assert.Equal(t, Handle(9), Copy(Handle(9)))
}

func TestEquals_NoCoercion(t *testing.T) {
	assert.False(t, Equals(Number(1), Text("1")))
	assert.False(t, Equals(Bool(true), Number(1)))
	assert.False(t, Equals(Null{}, Undefined{}))
	assert.False(t, Equals(Number(0), Bool(false)))
	assert.False(t, Equals(Handle(1), Number(1)))
}

func TestEquals_Handles(t *testing.T) {
	assert.True(t, Equals(Handle(4), Handle(4)))
	assert.False(t, Equals(Handle(4), Handle(5)))
}

func TestEquals_NaN(t *testing.T) {
	nan := Number(math.NaN())
	assert.True(t, Equals(nan, nan))
	assert.False(t, Equals(nan, Number(0)))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42, "42"},
		{42.5, "42.5"},
		{-45, "-45"},
		{3.14159, "3.14159"},
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{511.25, "511.25"},
		{1e21, "1e+21"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(Number(tt.in)))
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "lidar", String(Text("lidar")))
	assert.Equal(t, "true", String(Bool(true)))
	assert.Equal(t, "null", String(Null{}))
	assert.Equal(t, "undefined", String(Undefined{}))
	assert.Equal(t, "#12", String(Handle(12)))
}

func TestAsHandle(t *testing.T) {
	h, ok := AsHandle(Handle(3))
	assert.True(t, ok)
	assert.Equal(t, Handle(3), h)

	_, ok = AsHandle(Number(3))
	assert.False(t, ok)
}
