package taskq

import "sync/atomic"

// Mutex is a non-reentrant lock that never blocks: TryLock either takes it
// or reports that somebody else holds it. It may be released from a
// different goroutine than the one that took it.
type Mutex struct {
	held atomic.Bool
}

func (m *Mutex) TryLock() bool {
	return m.held.CompareAndSwap(false, true)
}

func (m *Mutex) Unlock() {
	if !m.held.CompareAndSwap(true, false) {
		panic("taskq: unlock of unlocked mutex")
	}
}

func (m *Mutex) Locked() bool {
	return m.held.Load()
}
