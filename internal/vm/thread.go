package vm

import (
	"context"
	"sync/atomic"

	"github.com/ristrettovm/ristretto/internal/gc"
)

// maxFrameDepth bounds recursion, the generalization of the teacher's
// hard-coded constant of the same name (pkg/vm/vm.go) into a per-Thread
// limit so embedding callers can size it per deployment.
const maxFrameDepth = 1024

// Thread is one JVM thread of execution: a call stack of Frames, a
// registered gc.Mutator (so the collector can stop it at a safepoint and
// trace its roots), and an interrupt flag (spec §5 "interrupt-flag
// cancellation semantics").
type Thread struct {
	VM      *VM
	Mutator *gc.Mutator

	frames     []*Frame
	interrupt  int32
}

// NewThread blocks until the VM's thread-table semaphore admits one more
// mutator (defaultMaxThreads by default, see vm.go), then registers it with
// vm's collector and returns a Thread ready to execute on it. Callers must
// call Detach when the thread exits, which releases both the collector
// registration and the thread-table slot.
func NewThread(v *VM) *Thread {
	_ = v.threadSem.Acquire(context.Background(), 1)
	return &Thread{VM: v, Mutator: v.Collector.RegisterMutator()}
}

// Detach unregisters the thread's mutator from the collector and frees its
// thread-table slot for the next NewThread to claim.
func (t *Thread) Detach() {
	t.Mutator.Unregister()
	t.VM.threadSem.Release(1)
}

// Interrupt sets the thread's interrupt flag, observed by Monitor.Enter and
// Monitor.Wait before they block.
func (t *Thread) Interrupt() { atomic.StoreInt32(&t.interrupt, 1) }

// Interrupted reports and clears the interrupt flag, matching
// Thread.interrupted()'s clear-on-read semantics.
func (t *Thread) Interrupted() bool {
	return atomic.SwapInt32(&t.interrupt, 0) != 0
}

// interrupted peeks at the flag without clearing it (used internally by
// Monitor, which must not consume the flag a caller hasn't observed yet).
func (t *Thread) interrupted() bool { return atomic.LoadInt32(&t.interrupt) != 0 }

// pushFrame/popFrame maintain the call stack and enforce maxFrameDepth
// (spec §4.E "StackOverflowError" for runaway recursion).
func (t *Thread) pushFrame(f *Frame) error {
	if len(t.frames) >= maxFrameDepth {
		return NewStackOverflowError()
	}
	t.frames = append(t.frames, f)
	return nil
}

func (t *Thread) popFrame() {
	t.frames = t.frames[:len(t.frames)-1]
}

// CurrentFrame returns the innermost active frame, or nil if the thread is
// not currently executing Java code.
func (t *Thread) CurrentFrame() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// Safepoint polls the collector for a pending stop-the-world collection and
// parks until released. Called at method prologue, every backward branch,
// every allocation, and before any blocking intrinsic (spec §5 "Safepoint
// polling").
func (t *Thread) Safepoint() { t.Mutator.Safepoint() }

// NewObject allocates and roots a new instance of class, returning a Value
// ready to push or store. The returned guard is intentionally discarded: for
// bring-up purposes Ristretto treats every allocation as permanently rooted
// by the thread that made it rather than tracking release points through
// every interpreter path.
func (t *Thread) NewObject(class string) (Value, error) {
	t.Safepoint()
	obj := NewObject(class)
	handle, _, err := allocate(t.VM.Collector, obj)
	if err != nil {
		return Value{}, err
	}
	return RefValue(handle), nil
}

// NewString allocates a java/lang/String wrapping s (used by ldc and by
// anything else that needs to hand a Go string back into the heap, e.g.
// String.valueOf).
func (t *Thread) NewString(s string) (Value, error) {
	t.Safepoint()
	handle, _, err := allocate(t.VM.Collector, &JString{Value: s})
	if err != nil {
		return Value{}, err
	}
	return RefValue(handle), nil
}

// NewArray allocates and roots a new array.
func (t *Thread) NewArray(elemDescriptor string, n int) (Value, error) {
	if n < 0 {
		return Value{}, NewNegativeArraySizeException(int32(n))
	}
	t.Safepoint()
	arr := NewArray(elemDescriptor, n)
	handle, _, err := allocate(t.VM.Collector, arr)
	if err != nil {
		return Value{}, err
	}
	return RefValue(handle), nil
}
