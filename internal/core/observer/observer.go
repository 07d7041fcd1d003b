package observer

import (
	"fmt"
	"reflect"

	"github.com/coralforge/engine/internal/core/ecs"
)

// DefaultCascadeLimit bounds how many flush passes may chain before the
// registry treats the cascade as a logic bug.
const DefaultCascadeLimit = 100

// Handler reacts to one component mutation with full World access.
// Handlers run only during Flush, after all systems of a run completed,
// so they never race a held guard.
type Handler func(w *ecs.World, e ecs.Entity)

type key struct {
	typ  reflect.Type
	kind ecs.TriggerKind
}

type pending struct {
	key    key
	entity ecs.Entity
}

// CascadeOverflowError is the panic value raised when a flush exceeds the
// cascade limit. It signals a handler loop (a handler unconditionally
// re-raising its own trigger), not a recoverable runtime condition.
type CascadeOverflowError struct {
	Passes int
}

func (e *CascadeOverflowError) Error() string {
	return fmt.Sprintf("observer: trigger cascade exceeded %d passes", e.Passes)
}

// Registry holds mutation handlers keyed by (component type, trigger
// kind) plus the queue of pending triggers. The key set is tracked apart
// from the handler map: during a flush the handler table is moved out of
// the registry so handlers may register new handlers without aliasing,
// and Wants/Push keep answering from the key set meanwhile.
type Registry struct {
	limit    int
	keys     map[key]struct{}
	handlers map[key][]Handler
	queue    []pending
}

// NewRegistry creates a registry with the given cascade limit; 0 means
// DefaultCascadeLimit.
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultCascadeLimit
	}
	return &Registry{
		limit:    limit,
		keys:     make(map[key]struct{}, 16),
		handlers: make(map[key][]Handler, 16),
	}
}

// OnAdd registers h for the first insertion of T on an entity.
func OnAdd[T any](r *Registry, h Handler) { r.on(typeOf[T](), ecs.TriggerAdd, h) }

// OnInsert registers h for every insertion of T, first or replacement.
func OnInsert[T any](r *Registry, h Handler) { r.on(typeOf[T](), ecs.TriggerInsert, h) }

// OnRemove registers h for removal of T, including despawn.
func OnRemove[T any](r *Registry, h Handler) { r.on(typeOf[T](), ecs.TriggerRemove, h) }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (r *Registry) on(t reflect.Type, kind ecs.TriggerKind, h Handler) {
	k := key{typ: t, kind: kind}
	r.keys[k] = struct{}{}
	r.handlers[k] = append(r.handlers[k], h)
}

// Wants implements ecs.TriggerSink.
func (r *Registry) Wants(t reflect.Type, kind ecs.TriggerKind) bool {
	_, ok := r.keys[key{typ: t, kind: kind}]
	return ok
}

// Push implements ecs.TriggerSink. Unregistered keys are dropped.
func (r *Registry) Push(t reflect.Type, kind ecs.TriggerKind, e ecs.Entity) {
	k := key{typ: t, kind: kind}
	if _, ok := r.keys[k]; !ok {
		return
	}
	r.queue = append(r.queue, pending{key: k, entity: e})
}

// Pending returns the number of queued triggers.
func (r *Registry) Pending() int { return len(r.queue) }

// Flush drains the trigger queue, running handlers with full World
// access. Triggers raised by handlers feed the next pass; handlers
// registered mid-pass are merged back and see subsequent passes. Panics
// with *CascadeOverflowError past the cascade limit.
func (r *Registry) Flush(w *ecs.World) {
	for pass := 0; len(r.queue) > 0; pass++ {
		if pass >= r.limit {
			panic(&CascadeOverflowError{Passes: r.limit})
		}

		batch := r.queue
		r.queue = nil

		// Detach the handler table for the duration of the pass so
		// handlers mutating the registry never alias a map being read.
		table := r.handlers
		r.handlers = make(map[key][]Handler, 4)

		for _, p := range batch {
			for _, h := range table[p.key] {
				h(w, p.entity)
			}
		}

		// Merge handlers registered during the pass.
		for k, hs := range r.handlers {
			table[k] = append(table[k], hs...)
		}
		r.handlers = table
	}
}
