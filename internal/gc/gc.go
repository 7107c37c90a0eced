package gc

// Gc is a shared, reference-counted handle to a collector-owned cell
// (spec §4.D "Gc<T>"). Cloning a Gc (assigning it, passing it by value) is
// cheap and never changes rootedness — only a GcRootGuard does that. The
// zero value (id 0) models the Rust "None" case for an optional Gc field:
// Get returns T's zero value and Trace is a no-op.
type Gc[T Trace] struct {
	id        uint64
	collector *Collector
}

// IsNil reports whether g is the zero handle.
func (g Gc[T]) IsNil() bool { return g.id == 0 || g.collector == nil }

// Get dereferences the handle's current payload. Calling Get on a handle
// whose cell has already been swept (a use-after-collect bug in the
// mutator, not a GC bug) returns T's zero value rather than panicking,
// since the collector has no way to distinguish "never existed" from
// "reclaimed" once the cell is gone.
func (g Gc[T]) Get() T {
	var zero T
	if g.IsNil() {
		return zero
	}
	g.collector.mu.Lock()
	defer g.collector.mu.Unlock()
	cell := g.collector.cells[g.id]
	if cell == nil {
		return zero
	}
	v, ok := cell.value.(T)
	if !ok {
		return zero
	}
	return v
}

// Trace marks g's cell and, the first time it is marked in this cycle,
// recurses into the payload's own Trace implementation. Marking an
// already-marked cell is a no-op, which is exactly what makes cyclic object
// graphs terminate (spec §4.D "Cycles are handled because marking an
// already-marked cell is idempotent").
func (g Gc[T]) Trace(c *Collector) {
	if g.IsNil() {
		return
	}
	g.collector.markCell(g.id)
}

// GcRootGuard wraps a Gc[T] and, for its lifetime, increments the cell's
// root count (spec §4.D "GcRootGuard<T>"). Go has no destructors, so the
// "drop" half of the Rust design is the explicit Release call; callers are
// expected to `defer guard.Release()` at the point a Rust value would go
// out of scope.
type GcRootGuard[T Trace] struct {
	gc       Gc[T]
	released bool
}

// NewGc allocates a cell for value, registers it as a root, and returns the
// owning guard (spec §4.D "new_gc").
func NewGc[T Trace](c *Collector, value T) (*GcRootGuard[T], error) {
	if c.isShutdown() {
		return nil, &CollectorShutdownError{}
	}
	id := allocCell(c, value)
	c.incRoot(id)
	return &GcRootGuard[T]{gc: Gc[T]{id: id, collector: c}}, nil
}

// AsRoot promotes an existing (non-rooting) handle to a root, returning a
// guard that must eventually be released (spec §4.D "as_root").
func AsRoot[T Trace](g Gc[T]) *GcRootGuard[T] {
	if !g.IsNil() {
		g.collector.incRoot(g.id)
	}
	return &GcRootGuard[T]{gc: g}
}

// Handle returns a non-rooting Gc[T] pointing at the same cell (spec §4.D
// "clone_gc() on a guard produces a non-rooting Gc<T>").
func (g *GcRootGuard[T]) Handle() Gc[T] { return g.gc }

// Get dereferences the guarded cell's current payload.
func (g *GcRootGuard[T]) Get() T { return g.gc.Get() }

// Release decrements the cell's root count exactly once (spec §4.D "Guard
// discipline: dropping a guard decrements the root count exactly once").
// Calling Release twice on the same guard panics rather than silently
// double-decrementing, since that would make a still-live cell collectable.
func (g *GcRootGuard[T]) Release() {
	if g.released {
		panic("gc: GcRootGuard released twice")
	}
	g.released = true
	if !g.gc.IsNil() {
		g.gc.collector.decRoot(g.gc.id)
	}
}
