package ecs

import (
	"reflect"
	"sync"

	"github.com/coralforge/engine/internal/core/access"
)

// World is the top-level container. It owns the entity allocator, the
// monotonic tick, one typed store and one AccessLock per registered
// component type, the resource table, and the deferred command queue
// runners drain after every schedule run.
//
// Structural mutation (spawn/despawn/insert/remove) is only safe while no
// concurrent system holds a guard, so concurrently running systems queue
// commands instead of mutating directly. Exclusive systems mutate the
// World directly.
type World struct {
	allocator *Allocator
	tick      uint64

	stores    map[reflect.Type]Removable
	names     map[reflect.Type]string
	resources map[reflect.Type]any
	locks     *access.Table

	cmdMu    sync.Mutex
	commands []func(*World)

	sink TriggerSink
}

func NewWorld() *World {
	return &World{
		allocator: NewAllocator(),
		stores:    make(map[reflect.Type]Removable, 16),
		names:     make(map[reflect.Type]string, 16),
		resources: make(map[reflect.Type]any, 8),
		locks:     access.NewTable(),
	}
}

func (w *World) Allocator() *Allocator { return w.allocator }
func (w *World) Locks() *access.Table  { return w.locks }
func (w *World) Tick() uint64          { return w.tick }

// AdvanceTick bumps the world tick. Runners call it once per run so every
// run's spawns carry a fresh spawn tick.
func (w *World) AdvanceTick() uint64 {
	w.tick++
	return w.tick
}

// SetTriggerSink installs the observer registry. Pass nil to detach.
func (w *World) SetTriggerSink(s TriggerSink) { w.sink = s }

// TriggerSink returns the installed sink, or nil.
func (w *World) TriggerSink() TriggerSink { return w.sink }

func (w *World) notify(t reflect.Type, kind TriggerKind, e Entity) {
	if w.sink != nil && w.sink.Wants(t, kind) {
		w.sink.Push(t, kind, e)
	}
}

// Spawn allocates a live entity stamped with the current tick.
func (w *World) Spawn() Entity {
	return w.allocator.Allocate(w.tick)
}

// SpawnMany bulk-allocates entities stamped with the current tick.
func (w *World) SpawnMany(count int) []Entity {
	return w.allocator.AllocateMany(count, w.tick)
}

// Despawn removes every component of e, firing remove triggers, then
// deallocates it. Reports false on a stale or dead handle.
func (w *World) Despawn(e Entity) bool {
	if !w.allocator.Alive(e) {
		return false
	}
	for t, store := range w.stores {
		if store.Has(e) {
			w.notify(t, TriggerRemove, e)
			store.Remove(e)
		}
	}
	return w.allocator.Deallocate(e)
}

func (w *World) Alive(e Entity) bool {
	return w.allocator.Alive(e)
}

// RegisterComponent creates the store, lock, and name entry for T.
// Registering twice is a no-op.
func RegisterComponent[T any](w *World) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if _, ok := w.stores[t]; ok {
		return
	}
	w.stores[t] = NewStore[T]()
	w.names[t] = t.String()
	w.locks.Register(t)
}

// StoreFor returns the typed store for T. Panics if T was never
// registered; that is an integration bug, not a runtime condition.
func StoreFor[T any](w *World) *Store[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	s, ok := w.stores[t]
	if !ok {
		panic("ecs: component type not registered: " + t.String())
	}
	return s.(*Store[T])
}

// Insert sets component T on e, firing add (first insertion) and insert
// triggers. Reports false on a dead handle.
func Insert[T any](w *World, e Entity, c *T) bool {
	if !w.allocator.Alive(e) {
		return false
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	store := StoreFor[T](w)
	first := !store.Has(e)
	store.Set(e, c)
	if first {
		w.notify(t, TriggerAdd, e)
	}
	w.notify(t, TriggerInsert, e)
	return true
}

// Remove deletes component T from e, firing the remove trigger. Reports
// whether the component was present.
func Remove[T any](w *World, e Entity) bool {
	store := StoreFor[T](w)
	if !store.Has(e) {
		return false
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	w.notify(t, TriggerRemove, e)
	store.Remove(e)
	return true
}

// Get returns e's component T, or nil,false.
func Get[T any](w *World, e Entity) (*T, bool) {
	return StoreFor[T](w).Get(e)
}

// SetResource installs (or replaces) the singleton resource T.
func SetResource[T any](w *World, r *T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	w.resources[t] = r
	w.locks.Register(t)
}

// Resource returns the singleton resource T, or nil,false.
func Resource[T any](w *World) (*T, bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r, ok := w.resources[t]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

// ComponentTypeIDs lists every registered component type.
func (w *World) ComponentTypeIDs() []reflect.Type {
	out := make([]reflect.Type, 0, len(w.stores))
	for t := range w.stores {
		out = append(out, t)
	}
	return out
}

// ResourceTypeIDs lists every installed resource type.
func (w *World) ResourceTypeIDs() []reflect.Type {
	out := make([]reflect.Type, 0, len(w.resources))
	for t := range w.resources {
		out = append(out, t)
	}
	return out
}

// ComponentTypeName returns the registered name for t. Diagnostics only.
func (w *World) ComponentTypeName(t reflect.Type) (string, bool) {
	n, ok := w.names[t]
	return n, ok
}

// QueueCommand defers a structural mutation until the current run's
// systems have all completed. Safe to call from any goroutine.
func (w *World) QueueCommand(fn func(*World)) {
	w.cmdMu.Lock()
	w.commands = append(w.commands, fn)
	w.cmdMu.Unlock()
}

// DrainCommands applies queued commands in order under exclusive World
// access. Commands queued by a command run in the same drain.
func (w *World) DrainCommands() {
	for {
		w.cmdMu.Lock()
		cmds := w.commands
		w.commands = nil
		w.cmdMu.Unlock()
		if len(cmds) == 0 {
			return
		}
		for _, fn := range cmds {
			fn(w)
		}
	}
}
