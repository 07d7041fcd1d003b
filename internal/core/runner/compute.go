package runner

import (
	"sync"
	"time"
)

// Task is a unit of background compute ticked in small slices. Tick does a
// bounded amount of work and reports true when the task is finished.
type Task interface {
	Tick() bool
}

// TaskFunc adapts a closure into a Task.
type TaskFunc func() bool

func (f TaskFunc) Tick() bool { return f() }

// Pool queues background compute that workers tick opportunistically
// between lock-contention yields, and that the runner drains within a
// time budget after all systems complete. Tasks that miss the budget
// simply carry over to the next run.
type Pool struct {
	mu    sync.Mutex
	tasks []Task
}

func NewPool() *Pool {
	return &Pool{}
}

// Submit queues a task. Safe from any goroutine.
func (p *Pool) Submit(t Task) {
	p.mu.Lock()
	p.tasks = append(p.tasks, t)
	p.mu.Unlock()
}

// Len returns the number of queued tasks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// TickOne advances the oldest task by one slice, re-queuing it if
// unfinished. Reports whether any work was done.
func (p *Pool) TickOne() bool {
	p.mu.Lock()
	if len(p.tasks) == 0 {
		p.mu.Unlock()
		return false
	}
	t := p.tasks[0]
	p.tasks = p.tasks[1:]
	p.mu.Unlock()

	if !t.Tick() {
		p.mu.Lock()
		p.tasks = append(p.tasks, t)
		p.mu.Unlock()
	}
	return true
}

// DrainFor ticks tasks until the queue empties or the budget elapses,
// returning how many tasks remain.
func (p *Pool) DrainFor(budget time.Duration) int {
	deadline := time.Now().Add(budget)
	for p.Len() > 0 && time.Now().Before(deadline) {
		p.TickOne()
	}
	return p.Len()
}
