package access

import (
	"reflect"
	"sync"
)

// Table holds one Lock per component/resource type. Acquisition over a Set
// is all-or-nothing: a partial acquire rolls back and reports contention,
// so a cooperative caller can retry without ever holding a half-locked set
// across a yield.
type Table struct {
	mu    sync.RWMutex
	locks map[reflect.Type]*Lock
}

func NewTable() *Table {
	return &Table{locks: make(map[reflect.Type]*Lock, 32)}
}

// Register creates the lock for t if it does not exist yet.
func (t *Table) Register(typ reflect.Type) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.locks[typ]; !ok {
		t.locks[typ] = &Lock{}
	}
}

// Lookup returns the lock for typ, or nil when the type was never
// registered.
func (t *Table) Lookup(typ reflect.Type) *Lock {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locks[typ]
}

func (t *Table) lock(typ reflect.Type) *Lock {
	t.mu.RLock()
	l := t.locks[typ]
	t.mu.RUnlock()
	if l != nil {
		return l
	}
	// Lazily created so systems may lock types inserted mid-run.
	t.mu.Lock()
	defer t.mu.Unlock()
	if l = t.locks[typ]; l == nil {
		l = &Lock{}
		t.locks[typ] = l
	}
	return l
}

// TryAcquire attempts every guard in set order. On the first contended
// guard it releases what it already holds and returns false.
func (t *Table) TryAcquire(set Set) bool {
	norm := set.normalized()
	types := set.Types()
	for i, typ := range types {
		l := t.lock(typ)
		ok := false
		if norm[typ] {
			ok = l.TryWrite()
		} else {
			ok = l.TryRead()
		}
		if !ok {
			t.release(types[:i], norm)
			return false
		}
	}
	return true
}

// Acquire spins TryAcquire with the supplied yield until the whole set is
// held.
func (t *Table) Acquire(set Set, yield func()) {
	for !t.TryAcquire(set) {
		yield()
	}
}

// Release drops every guard the set holds.
func (t *Table) Release(set Set) {
	t.release(set.Types(), set.normalized())
}

func (t *Table) release(types []reflect.Type, writes map[reflect.Type]bool) {
	for _, typ := range types {
		l := t.lock(typ)
		if writes[typ] {
			l.ReleaseWrite()
		} else {
			l.ReleaseRead()
		}
	}
}
