package runner

import (
	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
	"github.com/coralforge/engine/internal/diag"
)

// taskContext is the schedule.Context handed to a concurrent system.
// yield is the contention strategy the owning runner chose; onMain routes
// work to the coordinating thread.
type taskContext struct {
	world  *ecs.World
	index  int
	rec    *diag.Recorder
	yield  func()
	onMain func(fn func())
}

func (c *taskContext) Lock(set access.Set) schedule.Scope {
	return &lockScope{ctx: c, set: set}
}

func (c *taskContext) Commands(fn func(*ecs.World)) {
	c.world.QueueCommand(fn)
}

func (c *taskContext) OnMain(fn func()) {
	c.onMain(fn)
}

// lockScope acquires its whole set before running the closure and always
// releases before returning. The guard cannot escape: Execute is the only
// way in, so holding a guard across a yield is structurally impossible.
type lockScope struct {
	ctx *taskContext
	set access.Set
}

func (s *lockScope) Execute(fn func(w *ecs.World) error) error {
	locks := s.ctx.world.Locks()
	locks.Acquire(s.set, s.ctx.yield)
	defer locks.Release(s.set)
	if s.ctx.rec != nil {
		s.ctx.rec.Record(s.ctx.index, s.set)
	}
	return fn(s.ctx.world)
}
