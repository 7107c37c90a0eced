// Package vm implements Ristretto's execution engine: frames, the operand
// stack, method resolution and dispatch, and the bytecode interpreter (spec
// §4.E). It sits above internal/classfile (which it never re-parses, only
// reads), internal/classloader (which supplies resolved ClassFiles) and
// internal/gc (which owns every heap-allocated JObject/JArray).
package vm

import "github.com/ristrettovm/ristretto/internal/gc"

var _ gc.Trace = Value{}

// Kind tags a Value's representation. Unlike the teacher's three-way
// ValueType (int/ref/null), Ristretto's operand stack must distinguish all
// four JVM computational types plus null, since spec §4.E requires
// category-2 width accounting and per-type arithmetic (I/L/F/D each get
// their own add/sub/mul/div/rem/neg/shl/shr/ushr/and/or/xor/cmp family).
type Kind int

const (
	KindInt32 Kind = iota
	KindInt64
	KindFloat32
	KindFloat64
	KindRef
	KindNull
)

// Category returns the JVM computational category of k: 2 for long/double,
// 1 for everything else (JVMS §2.6.1). A category-2 value occupies two
// operand stack slots / two local variable slots.
func (k Kind) Category() int {
	if k == KindInt64 || k == KindFloat64 {
		return 2
	}
	return 1
}

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int"
	case KindInt64:
		return "long"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindRef:
		return "reference"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value is a single entry of the operand stack or local variable array. Only
// the field matching Kind is meaningful; the rest are zero. Ref holds a
// gc.Gc[Ref] handle rather than a bare Go pointer, so every live object/array
// reference is reachable from collector roots via Frame/Thread tracing.
type Value struct {
	Kind    Kind
	I32     int32
	I64     int64
	F32     float32
	F64     float64
	Ref     gc.Gc[Ref]
}

// Category is shorthand for Value.Kind.Category().
func (v Value) Category() int { return v.Kind.Category() }

// Trace delegates to the held reference when v is a KindRef, and is a no-op
// for every other Kind, making Value itself gc.Trace-able: a JObject's field
// table and a JArray's element slice are both plain []Value/map[string]Value
// rather than a homogeneous container of gc.Gc[Ref], so Value has to carry
// its own Trace to be passed straight to gc.TraceSlice/gc.TraceMap.
func (v Value) Trace(c *gc.Collector) {
	if v.Kind == KindRef {
		v.Ref.Trace(c)
	}
}

// IsNullRef reports whether v is either the null literal or a nil reference
// handle of kind KindRef (both print and compare as Java null).
func (v Value) IsNullRef() bool {
	return v.Kind == KindNull || (v.Kind == KindRef && v.Ref.IsNil())
}

func Int32Value(n int32) Value   { return Value{Kind: KindInt32, I32: n} }
func Int64Value(n int64) Value   { return Value{Kind: KindInt64, I64: n} }
func Float32Value(f float32) Value { return Value{Kind: KindFloat32, F32: f} }
func Float64Value(f float64) Value { return Value{Kind: KindFloat64, F64: f} }
func NullValue() Value           { return Value{Kind: KindNull} }

// RefValue wraps an already-allocated reference handle.
func RefValue(r gc.Gc[Ref]) Value { return Value{Kind: KindRef, Ref: r} }

// BoolValue follows JVMS's representation of boolean as int (0/1).
func BoolValue(b bool) Value {
	if b {
		return Int32Value(1)
	}
	return Int32Value(0)
}

// defaultValueForDescriptor returns the zero Value a field or array slot of
// the given field descriptor starts with, the one place this package
// duplicates the teacher's defaultValueForDescriptor switch (pkg/vm/vm.go),
// generalized from its int/ref/null pair to all five kinds.
func defaultValueForDescriptor(descriptor string) Value {
	if len(descriptor) == 0 {
		return NullValue()
	}
	switch descriptor[0] {
	case 'L', '[':
		return NullValue()
	case 'F':
		return Float32Value(0)
	case 'D':
		return Float64Value(0)
	case 'J':
		return Int64Value(0)
	default:
		return Int32Value(0)
	}
}
