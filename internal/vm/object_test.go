package vm

import (
	"testing"

	"github.com/ristrettovm/ristretto/internal/gc"
)

// TestJObjectTraceKeepsReferencedFieldAlive exercises JObject.Trace's
// gc.TraceMap wiring: a field holding a live reference must keep that
// reference's cell alive across a collection once the field's owner is
// itself reachable.
func TestJObjectTraceKeepsReferencedFieldAlive(t *testing.T) {
	c := gc.NewCollector(nil)

	childGuard, childRoot, err := allocate(c, NewObject("java/lang/Object"))
	if err != nil {
		t.Fatalf("allocate child: %v", err)
	}
	_ = childRoot

	owner := NewObject("com/example/Holder")
	owner.Fields["child"] = RefValue(childGuard)

	ownerHandle, ownerRoot, err := allocate(c, owner)
	if err != nil {
		t.Fatalf("allocate owner: %v", err)
	}
	defer ownerRoot.Release()
	_ = ownerHandle

	childRoot.Release() // only reachable now via owner.Fields["child"]

	if err := c.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if c.CellCount() != 2 {
		t.Fatalf("CellCount() = %d, want 2 (owner plus its traced child field)", c.CellCount())
	}
}

// TestJArrayTraceKeepsReferencedElementsAlive exercises JArray.Trace's
// gc.TraceSlice wiring over Elements.
func TestJArrayTraceKeepsReferencedElementsAlive(t *testing.T) {
	c := gc.NewCollector(nil)

	elemGuard, elemRoot, err := allocate(c, NewObject("java/lang/Object"))
	if err != nil {
		t.Fatalf("allocate element: %v", err)
	}

	arr := NewArray("Ljava/lang/Object;", 1)
	arr.Elements[0] = RefValue(elemGuard)

	arrHandle, arrRoot, err := allocate(c, arr)
	if err != nil {
		t.Fatalf("allocate array: %v", err)
	}
	defer arrRoot.Release()
	_ = arrHandle

	elemRoot.Release() // only reachable now via arr.Elements[0]

	if err := c.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if c.CellCount() != 2 {
		t.Fatalf("CellCount() = %d, want 2 (array plus its traced element)", c.CellCount())
	}
}
