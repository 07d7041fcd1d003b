package schedule

import (
	"fmt"

	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
)

// Kind tags how a registered system executes. Selection is explicit at
// registration time; there is no marker-based overload resolution.
type Kind int

const (
	// KindConcurrent systems run under AccessLock arbitration and may
	// share a stage with other systems.
	KindConcurrent Kind = iota
	// KindExclusive systems take the whole World and act as a
	// scheduling barrier: nothing runs concurrently with them.
	KindExclusive
)

func (k Kind) String() string {
	switch k {
	case KindConcurrent:
		return "concurrent"
	case KindExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Context is what a concurrent system runs against. The runner implements
// it; systems acquire locked scopes and queue deferred mutations through
// it rather than touching the World directly.
type Context interface {
	// Lock stages acquisition of the given access set. The set may be
	// broader or narrower than the system's declared set; whatever is
	// actually locked is what diagnostics record.
	Lock(set access.Set) Scope

	// Commands queues a structural mutation to apply after every system
	// of the run has completed.
	Commands(fn func(*ecs.World))

	// OnMain runs fn on the coordinating thread and waits for it. On the
	// single-thread runner it is an immediate call.
	OnMain(fn func())
}

// Scope is a staged lock acquisition. Execute acquires every guard
// (retrying cooperatively on contention), runs fn, and releases. Guards
// never outlive the Execute call, so they cannot be held across a yield.
type Scope interface {
	Execute(fn func(w *ecs.World) error) error
}

// System is a unit of work with a declared access set.
type System interface {
	Name() string
	Access() access.Set
	Run(ctx Context) error
}

// ExclusiveSystem is a unit of work requiring the full World.
type ExclusiveSystem interface {
	Name() string
	RunExclusive(w *ecs.World) error
}

// Condition gates whether a system runs this schedule execution. A false
// result counts the system as completed without running its body.
type Condition func(w *ecs.World) bool

// SystemFunc adapts a closure plus declaration into a System.
type SystemFunc struct {
	SystemName string
	Declared   access.Set
	Fn         func(ctx Context) error
}

func (s SystemFunc) Name() string          { return s.SystemName }
func (s SystemFunc) Access() access.Set    { return s.Declared }
func (s SystemFunc) Run(ctx Context) error { return s.Fn(ctx) }

// ExclusiveFunc adapts a closure into an ExclusiveSystem.
type ExclusiveFunc struct {
	SystemName string
	Fn         func(w *ecs.World) error
}

func (s ExclusiveFunc) Name() string                    { return s.SystemName }
func (s ExclusiveFunc) RunExclusive(w *ecs.World) error { return s.Fn(w) }

// SystemError wraps a single system's failure. Failures are collected per
// system and never abort sibling systems.
type SystemError struct {
	System string
	Err    error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system %q: %v", e.System, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }
