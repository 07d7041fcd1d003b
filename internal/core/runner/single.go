package runner

import (
	"time"

	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
	"github.com/coralforge/engine/internal/diag"
)

// runSingle executes every system on the calling goroutine. One ready
// queue, dependency counters decremented on completion. Only one system
// runs at a time and guards never span an Execute call, so lock
// contention cannot arise; the yield just drains background compute.
func (r *Runner) runSingle(w *ecs.World, sched *schedule.Schedule, rec *diag.Recorder, opts *diag.Options, res *RunResult) {
	n := sched.Len()
	remaining := make([]int, n)
	var queue []int
	for i := 0; i < n; i++ {
		remaining[i] = sched.InDegree(i)
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}

	yield := func() { r.pool.TickOne() }
	onMain := func(fn func()) { fn() }

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		start := time.Now()
		if node := sched.Node(i); node.Cond == nil || node.Cond(w) {
			ctx := &taskContext{world: w, index: i, rec: rec, yield: yield, onMain: onMain}
			if serr := r.execute(w, sched, i, ctx); serr != nil {
				res.Errors = append(res.Errors, serr)
				r.log.Warn("system failed", zapSystemError(serr)...)
			}
		}
		if opts.CollectTimings {
			res.Report.Timings = append(res.Report.Timings, diag.Timing{
				System:   sched.Node(i).Name,
				Duration: time.Since(start),
			})
		}

		for _, d := range sched.Dependents(i) {
			remaining[d]--
			if remaining[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
}
