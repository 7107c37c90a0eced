package classloader

import "sync"

// poisonableMutex is an exclusive lock that, if a panic escapes while it is
// held, marks itself poisoned: every subsequent critical section fails fast
// with PoisonedLockError instead of silently operating on state a panic may
// have left half-updated. This is the Go-idiom rendering of the originals's
// std::sync::RwLock poisoning (spec §4.C "Poisoned locks surface as
// PoisonedLock") — Go mutexes don't poison themselves, so the behavior is
// reconstructed explicitly here.
type poisonableMutex struct {
	mu       sync.Mutex
	poisoned bool
}

// withLock runs fn while holding the exclusive lock. If fn panics, the lock
// is marked poisoned before the panic continues to propagate.
func (m *poisonableMutex) withLock(fn func() error) (err error) {
	m.mu.Lock()
	if m.poisoned {
		m.mu.Unlock()
		return &PoisonedLockError{}
	}
	poisonedByPanic := true
	defer func() {
		if poisonedByPanic {
			m.poisoned = true
		}
		m.mu.Unlock()
	}()
	err = fn()
	poisonedByPanic = false
	return err
}
