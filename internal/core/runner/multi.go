package runner

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
	"github.com/coralforge/engine/internal/diag"
)

type completion struct {
	index    int
	err      *schedule.SystemError
	duration time.Duration
}

type mainCall struct {
	fn   func()
	done chan struct{}
}

// runMulti spawns one goroutine per ready system (capped by workers when
// set) and coordinates from the calling goroutine. remaining[i] is an
// atomic dependency counter; the worker that drives it to zero hands the
// newly-ready system to the coordinator, so the parallel frontier grows
// and shrinks dynamically instead of executing in lockstep stages.
//
// The coordinator also services main-thread-only requests interleaved
// with completions, so a worker blocked in OnMain never deadlocks against
// a coordinator blocked on completions.
func (r *Runner) runMulti(w *ecs.World, sched *schedule.Schedule, rec *diag.Recorder, opts *diag.Options, res *RunResult) {
	n := sched.Len()
	remaining := make([]atomic.Int32, n)
	for i := 0; i < n; i++ {
		remaining[i].Store(int32(sched.InDegree(i)))
	}

	completions := make(chan completion, n)
	mainReq := make(chan mainCall)
	var sem chan struct{}
	if r.workers > 0 {
		sem = make(chan struct{}, r.workers)
	}

	// Lock contention burns the wait productively: tick background
	// compute, else yield the thread. Never parks, so cooperative tasks
	// sharing workers cannot invert priorities against a sleeping holder.
	yield := func() {
		if !r.pool.TickOne() {
			runtime.Gosched()
		}
	}
	onMain := func(fn func()) {
		call := mainCall{fn: fn, done: make(chan struct{})}
		mainReq <- call
		<-call.done
	}

	spawn := func(i int) {
		go func() {
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			ctx := &taskContext{world: w, index: i, rec: rec, yield: yield, onMain: onMain}
			start := time.Now()
			serr := r.execute(w, sched, i, ctx)
			completions <- completion{index: i, err: serr, duration: time.Since(start)}
		}()
	}

	// Conditions evaluate here on the coordinator, one at a time: the
	// condition source may wrap a single-goroutine script VM. A gated-off
	// system completes without spawning; the buffered channel holds every
	// system, so the send cannot block.
	dispatch := func(i int) {
		if node := sched.Node(i); node.Cond != nil && !node.Cond(w) {
			completions <- completion{index: i}
			return
		}
		spawn(i)
	}

	for i := 0; i < n; i++ {
		if remaining[i].Load() == 0 {
			dispatch(i)
		}
	}

	completed := 0
	for completed < n {
		select {
		case c := <-completions:
			completed++
			if c.err != nil {
				res.Errors = append(res.Errors, c.err)
				r.log.Warn("system failed", zapSystemError(c.err)...)
			}
			if opts.CollectTimings {
				res.Report.Timings = append(res.Report.Timings, diag.Timing{
					System:   sched.Node(c.index).Name,
					Duration: c.duration,
				})
			}
			for _, d := range sched.Dependents(c.index) {
				if remaining[d].Add(-1) == 0 {
					dispatch(d)
				}
			}
		case m := <-mainReq:
			m.fn()
			close(m.done)
		}
	}
}

func zapSystemError(e *schedule.SystemError) []zap.Field {
	return []zap.Field{zap.String("system", e.System), zap.Error(e.Err)}
}
