// Package runner executes a compiled schedule against a World, either
// cooperatively on the calling goroutine or in parallel with one worker
// per ready system. Both runners share one contract: a system starts only
// after its last dependency completed, deferred commands and trigger
// flushes apply only after every system finished, and a failing system
// never aborts its siblings.
package runner

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
	"github.com/coralforge/engine/internal/diag"
)

// DefaultShutdownBudget bounds how long a run keeps ticking background
// compute after all systems complete.
const DefaultShutdownBudget = 10 * time.Millisecond

// RunResult is what a completed run reports. Errors holds one entry per
// failed system; Report is always present, with timings and ambiguities
// filled only when requested.
type RunResult struct {
	Errors []*schedule.SystemError
	Report *diag.Report
}

// Failed reports whether any system failed.
func (r *RunResult) Failed() bool { return len(r.Errors) > 0 }

type mode int

const (
	modeSingle mode = iota
	modeMulti
)

// Runner executes schedules. Construct with SingleThread or MultiThread;
// the zero value is not usable.
type Runner struct {
	mode           mode
	workers        int
	log            *zap.Logger
	pool           *Pool
	shutdownBudget time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithComputePool shares a background compute pool with the runner.
func WithComputePool(p *Pool) Option {
	return func(r *Runner) { r.pool = p }
}

// WithShutdownBudget overrides how long post-run compute draining may take.
func WithShutdownBudget(d time.Duration) Option {
	return func(r *Runner) { r.shutdownBudget = d }
}

func newRunner(m mode, workers int, opts []Option) *Runner {
	r := &Runner{
		mode:           m,
		workers:        workers,
		log:            zap.NewNop(),
		pool:           NewPool(),
		shutdownBudget: DefaultShutdownBudget,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SingleThread returns a cooperative runner that executes every system on
// the calling goroutine.
func SingleThread(opts ...Option) *Runner {
	return newRunner(modeSingle, 0, opts)
}

// MultiThread returns a parallel runner. workers caps how many systems
// run at once; 0 means unbounded (one goroutine per concurrently-ready
// system).
func MultiThread(workers int, opts ...Option) *Runner {
	return newRunner(modeMulti, workers, opts)
}

// Pool returns the runner's background compute pool.
func (r *Runner) Pool() *Pool { return r.pool }

// Run compiles the container (cached between unchanged runs) and executes
// it without optional diagnostics.
func (r *Runner) Run(w *ecs.World, c *schedule.Container) (*RunResult, error) {
	return r.RunWith(w, c, nil)
}

// RunWith executes with the given diagnostics options. The returned error
// is a build failure (cycle, unknown name); per-system failures land in
// RunResult.Errors instead.
func (r *Runner) RunWith(w *ecs.World, c *schedule.Container, opts *diag.Options) (*RunResult, error) {
	sched, err := c.Compile()
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &diag.Options{}
	}
	res := &RunResult{Report: diag.NewReport()}
	var rec *diag.Recorder
	if opts.DetectAmbiguities {
		rec = diag.NewRecorder(sched.Len())
	}

	w.AdvanceTick()

	if r.mode == modeSingle {
		r.runSingle(w, sched, rec, opts, res)
	} else {
		r.runMulti(w, sched, rec, opts, res)
	}

	// All systems done: structural mutation is safe now. Commands first,
	// then trigger cascades raised by those commands.
	w.DrainCommands()
	if f, ok := w.TriggerSink().(flusher); ok {
		f.Flush(w)
	}

	if remaining := r.pool.DrainFor(r.shutdownBudget); remaining > 0 {
		res.Report.PendingCompute = remaining
		r.log.Warn("compute pool not drained within shutdown budget",
			zap.Int("remaining", remaining),
			zap.Duration("budget", r.shutdownBudget))
	}

	if opts.DetectAmbiguities {
		res.Report.Ambiguities = diag.DetectAmbiguities(sched, rec, func(t reflect.Type) string {
			if n, ok := w.ComponentTypeName(t); ok {
				return n
			}
			return t.String()
		})
	}
	return res, nil
}

type flusher interface {
	Flush(w *ecs.World)
}

// execute runs one system body to completion, translating a panic or
// returned error into a SystemError. Condition gating happens at dispatch
// time, on the runner's own goroutine, before execute is reached.
func (r *Runner) execute(w *ecs.World, sched *schedule.Schedule, i int, ctx schedule.Context) (serr *schedule.SystemError) {
	node := sched.Node(i)
	defer func() {
		if v := recover(); v != nil {
			serr = &schedule.SystemError{
				System: node.Name,
				Err:    fmt.Errorf("panic: %v", v),
			}
		}
	}()
	var err error
	if node.Kind == schedule.KindExclusive {
		err = node.RunExclusive(w)
	} else {
		err = node.Run(ctx)
	}
	if err != nil {
		return &schedule.SystemError{System: node.Name, Err: err}
	}
	return nil
}
