package access

import "sync/atomic"

// Lock is a single-resource reader/writer lock that never parks a thread.
// The state word is a signed counter: 0 unlocked, N>0 that many readers,
// -1 one writer. All transitions go through compare-and-swap, so the lock
// is safe to probe from any goroutine without a mutex.
//
// Contention is not an error here: TryRead/TryWrite report false and the
// caller retries on its own schedule. Read/Write wrap that retry with a
// caller-supplied yield so a cooperative runner can make progress elsewhere
// between attempts.
type Lock struct {
	state atomic.Int64
}

const writerHeld = -1

// TryRead acquires a shared guard if no writer holds the lock.
func (l *Lock) TryRead() bool {
	for {
		s := l.state.Load()
		if s == writerHeld {
			return false
		}
		if l.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

// TryWrite acquires the exclusive guard if the lock is fully free.
func (l *Lock) TryWrite() bool {
	return l.state.CompareAndSwap(0, writerHeld)
}

// Read spins TryRead, invoking yield between failed attempts.
// yield must not be nil.
func (l *Lock) Read(yield func()) {
	for !l.TryRead() {
		yield()
	}
}

// Write spins TryWrite, invoking yield between failed attempts.
func (l *Lock) Write(yield func()) {
	for !l.TryWrite() {
		yield()
	}
}

// ReleaseRead drops one shared guard.
func (l *Lock) ReleaseRead() {
	l.state.Add(-1)
}

// ReleaseWrite drops the exclusive guard.
func (l *Lock) ReleaseWrite() {
	l.state.Store(0)
}

// Readers reports the number of outstanding shared guards, or 0 when a
// writer holds the lock.
func (l *Lock) Readers() int {
	if s := l.state.Load(); s > 0 {
		return int(s)
	}
	return 0
}

// WriteHeld reports whether the exclusive guard is held.
func (l *Lock) WriteHeld() bool {
	return l.state.Load() == writerHeld
}
