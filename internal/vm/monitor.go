package vm

import "sync"

// Monitor is a Java object monitor: a reentrant lock plus a wait-set,
// associated with a JObject lazily on first monitorenter (JVMS §2.11.10,
// spec §5 "Monitor"). Like classloader's poisonableMutex, a panic while held
// poisons the monitor so later entries fail fast with PoisonedLockError
// instead of operating on state the panic may have left inconsistent —
// Ristretto's rendering of lock poisoning for the object-monitor domain
// rather than the class-loading one.
type Monitor struct {
	mu       sync.Mutex
	cond     *sync.Cond
	poisoned bool

	owner    *Thread
	depth    int // reentrancy count, 0 means unlocked
	objClass string
}

// NewMonitor returns an unlocked monitor for an object of the given class
// (used only for diagnostics in PoisonedLockError).
func NewMonitor(objClass string) *Monitor {
	m := &Monitor{objClass: objClass}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enter acquires the monitor for t, blocking if another thread holds it.
// Reentrant: the same thread may call Enter again without blocking, and must
// call Exit the same number of times.
func (m *Monitor) Enter(t *Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return &PoisonedLockError{Object: m.objClass}
	}
	for m.depth > 0 && m.owner != t {
		if t.interrupted() {
			return &InterruptedError{}
		}
		m.cond.Wait()
		if m.poisoned {
			return &PoisonedLockError{Object: m.objClass}
		}
	}
	m.owner = t
	m.depth++
	return nil
}

// Exit releases one level of reentrancy, failing with
// IllegalMonitorStateException if t does not hold the monitor (JVMS
// §6.5.monitorexit).
func (m *Monitor) Exit(t *Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return &PoisonedLockError{Object: m.objClass}
	}
	if m.depth == 0 || m.owner != t {
		return NewIllegalMonitorStateException()
	}
	m.depth--
	if m.depth == 0 {
		m.owner = nil
		m.cond.Broadcast()
	}
	return nil
}

// Poison marks m unusable. Intended to run in a defer guarding the critical
// section run while m is held, the same shape as classloader's
// poisonableMutex.withLock.
func (m *Monitor) Poison() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poisoned = true
	m.cond.Broadcast()
}

// Wait releases the monitor, blocks until a Notify/NotifyAll wakes it, then
// reacquires it before returning — java/lang/Object.wait (JVMS §2.11.10,
// spec §5 "sequential consistency within a thread ... JVM happens-before
// across threads"). Known gap (spec §9 open item): Go's sync.Cond has no
// interruptible wait, so a thread already parked in Wait cannot be preempted
// by a concurrent Thread.Interrupt the way a real JVM's wait(long) can —
// interrupt is only observed before Wait blocks.
func (m *Monitor) Wait(t *Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return &PoisonedLockError{Object: m.objClass}
	}
	if m.depth == 0 || m.owner != t {
		return NewIllegalMonitorStateException()
	}
	if t.interrupted() {
		return &InterruptedError{}
	}
	savedDepth := m.depth
	m.depth = 0
	m.owner = nil
	m.cond.Broadcast() // let another waiter/enterer in while we sleep
	m.cond.Wait()
	if m.poisoned {
		return &PoisonedLockError{Object: m.objClass}
	}
	for m.depth > 0 && m.owner != t {
		m.cond.Wait()
		if m.poisoned {
			return &PoisonedLockError{Object: m.objClass}
		}
	}
	m.depth = savedDepth
	m.owner = t
	return nil
}

// Notify and NotifyAll wake one or all waiters respectively. Both require
// the calling thread to hold the monitor, exactly like Wait.
func (m *Monitor) Notify(t *Thread, all bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return &PoisonedLockError{Object: m.objClass}
	}
	if m.depth == 0 || m.owner != t {
		return NewIllegalMonitorStateException()
	}
	if all {
		m.cond.Broadcast()
	} else {
		m.cond.Signal()
	}
	return nil
}
