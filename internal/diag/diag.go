// Package diag records what a schedule run actually did, meaning which
// accesses each system acquired and how long it took, and derives informational
// reports from it. Nothing here affects run safety: AccessLocks arbitrate
// real concurrent access regardless of whether diagnostics are enabled.
package diag

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/schedule"
)

// Options selects which diagnostics a run collects.
type Options struct {
	DetectAmbiguities bool
	CollectTimings    bool
}

// Timing is one system's wall-clock duration for a run.
type Timing struct {
	System   string
	Duration time.Duration
}

// AmbiguityInfo names two systems that touched overlapping state with at
// least one write but had no ordering edge between them. The run itself
// stayed safe, since locks still arbitrated, but the outcome depends on
// which system won the lock first.
type AmbiguityInfo struct {
	SystemA string
	SystemB string
	Types   []string
}

// Report is the per-run diagnostics output.
type Report struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	Timings        []Timing
	Ambiguities    []AmbiguityInfo
	PendingCompute int // background tasks not drained within the shutdown budget
}

func NewReport() *Report {
	return &Report{RunID: uuid.New(), StartedAt: time.Now()}
}

// Recorder accumulates the accesses each system actually acquired during
// one run. Actual accesses can be broader than declared ones (conditional
// locking inside a system body), which is exactly why ambiguity detection
// reads the recorder instead of the declarations.
type Recorder struct {
	mu       sync.Mutex
	recorded []access.Set
}

func NewRecorder(systems int) *Recorder {
	return &Recorder{recorded: make([]access.Set, systems)}
}

// Record merges set into system i's recorded accesses. Safe from any
// worker goroutine.
func (r *Recorder) Record(i int, set access.Set) {
	r.mu.Lock()
	r.recorded[i] = r.recorded[i].Merge(set)
	r.mu.Unlock()
}

// Recorded returns the merged access set for system i.
func (r *Recorder) Recorded(i int) access.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded[i]
}

// DetectAmbiguities compares recorded accesses against the schedule's
// ordering. Every unordered pair with a recorded conflict yields exactly
// one AmbiguityInfo listing all conflicting types. Exclusive systems are
// skipped: they are unconditional barriers and order everything around
// them by construction.
func DetectAmbiguities(s *schedule.Schedule, rec *Recorder, nameOf func(reflect.Type) string) []AmbiguityInfo {
	var out []AmbiguityInfo
	n := s.Len()
	for i := 0; i < n; i++ {
		if s.Node(i).Kind == schedule.KindExclusive {
			continue
		}
		for j := i + 1; j < n; j++ {
			if s.Node(j).Kind == schedule.KindExclusive {
				continue
			}
			if s.Ordered(i, j) || s.Ordered(j, i) {
				continue
			}
			conflicts := rec.Recorded(i).Conflicts(rec.Recorded(j))
			if len(conflicts) == 0 {
				continue
			}
			names := make([]string, len(conflicts))
			for k, t := range conflicts {
				names[k] = nameOf(t)
			}
			out = append(out, AmbiguityInfo{
				SystemA: s.Node(i).Name,
				SystemB: s.Node(j).Name,
				Types:   names,
			})
		}
	}
	return out
}
