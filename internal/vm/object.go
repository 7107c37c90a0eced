package vm

import "github.com/ristrettovm/ristretto/internal/gc"

// Ref is implemented by everything a Value of KindRef can point at: ordinary
// objects and arrays. It exists so gc.Gc[Ref] can hold either behind one
// handle type, the way java/lang/Object references both in the JVM.
type Ref interface {
	gc.Trace
	ClassName() string
}

// JObject is a heap object instance: a vtable pointer (by name, resolved
// through the ClassLoader at dispatch time rather than cached here, so a
// redefined class is picked up the same way the teacher's JObject does) plus
// a field table. Monitor is non-nil only once some thread has entered it via
// monitorenter, matching the JVM's lazily-associated object monitor.
type JObject struct {
	Class   string
	Fields  map[string]Value
	Monitor *Monitor
}

// NewObject allocates an instance of class with an empty field table (spec
// §4.E "new" creates a zeroed instance before <init> runs); a field not yet
// written reads as its descriptor's default through executeGetfield.
func NewObject(class string) *JObject {
	return &JObject{Class: class, Fields: make(map[string]Value)}
}

func (o *JObject) ClassName() string { return o.Class }

// Trace marks every reference-typed field (spec §4.D Trace contract: a
// Trace that forgets a field silently leaks, it does not corrupt memory).
func (o *JObject) Trace(c *gc.Collector) {
	gc.TraceMap(c, o.Fields)
}

// JArray is a heap array instance. Elem is the Kind of the element type's
// default value; array load/store pick their operation from the opcode, and
// aastore's ArrayStore check reads ElemDescriptor. Elements holds one Value
// per slot regardless of category, mirroring the teacher's JArray.
type JArray struct {
	ElemDescriptor string // e.g. "I", "[I", "Ljava/lang/String;"
	Elem           Kind
	Elements       []Value
}

// NewArray allocates a zero-filled array of length n, elements defaulted per
// elemDescriptor (JVMS §6.5.newarray / anewarray: arrays are always
// zero-initialized, never left undefined).
func NewArray(elemDescriptor string, n int) *JArray {
	elems := make([]Value, n)
	def := defaultValueForDescriptor(elemDescriptor)
	for i := range elems {
		elems[i] = def
	}
	return &JArray{ElemDescriptor: elemDescriptor, Elem: def.Kind, Elements: elems}
}

func (a *JArray) ClassName() string { return "[" + a.ElemDescriptor }

func (a *JArray) Trace(c *gc.Collector) {
	gc.TraceSlice(c, a.Elements)
}

// JString is a heap-allocated java/lang/String backed directly by a Go
// string rather than a char/byte array field, the same shortcut the teacher
// takes (pkg/vm/vm.go stores interned strings as a bare Go string), kept as
// its own Ref-implementing type here only so it can be traced and handed out
// as a gc.Gc[Ref] handle like every other reference.
type JString struct {
	Value string
}

func (s *JString) ClassName() string      { return "java/lang/String" }
func (s *JString) Trace(c *gc.Collector)  {}

// allocate registers r with the collector and returns its handle together
// with the root guard that keeps it alive until released. Thread.NewObject,
// Thread.NewString and Thread.NewArray discard the guard, so what they
// allocate stays rooted.
func allocate(c *gc.Collector, r Ref) (gc.Gc[Ref], *gc.GcRootGuard[Ref], error) {
	guard, err := gc.NewGc[Ref](c, r)
	if err != nil {
		return gc.Gc[Ref]{}, nil, err
	}
	return guard.Handle(), guard, nil
}
