// Package gc implements Ristretto's tracing garbage collector: Gc[T]
// handles, GcRootGuard rooting, a mark-sweep collection cycle, and the
// stop-the-world rendezvous that keeps mutators from touching reference
// fields while the collector walks the heap (spec §4.D).
//
// Grounded on original_source/ristretto_gc/tests/tracing.rs: the Trace
// contract, the no-op primitive default, and container traces over
// slices/maps are carried over verbatim in semantics, reworked into Go's
// interface-and-generics idiom in place of Rust's trait objects.
package gc

// Trace is implemented by every type a Gc[T] can hold. Trace must recurse
// into every Gc-typed field it holds; a Trace that forgets a field causes a
// silent leak, never a memory-safety violation (spec §4.D "Failure modes").
type Trace interface {
	Trace(c *Collector)
}

// NoTrace embeds into payload types that hold no Gc references (ints,
// strings, and other leaves of the object graph), giving them a no-op Trace
// for free (spec §4.D "Primitive trace as a no-op").
type NoTrace struct{}

func (NoTrace) Trace(*Collector) {}

// TraceSlice traces every element of a slice of Trace-able values,
// satisfying the "sequence" container trace (spec §4.D "Container traces").
// T is any Trace implementation, not just Gc[_] handles: a Gc[T] already
// satisfies Trace by delegating to its cell, so a []Gc[T] of bare handles
// works here exactly like Rust's Vec<Gc<T>>, but so does a slice of a
// composite type that embeds its own Gc fields (Rust's Vec<T: Trace>).
func TraceSlice[T Trace](c *Collector, items []T) {
	for _, item := range items {
		item.Trace(c)
	}
}

// TraceMap traces every value of a map keyed by a comparable, non-traced
// key, satisfying the "map" container trace. See TraceSlice for why V is
// any Trace-able value rather than a Gc[_] handle specifically.
func TraceMap[K comparable, V Trace](c *Collector, m map[K]V) {
	for _, v := range m {
		v.Trace(c)
	}
}
