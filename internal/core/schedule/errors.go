package schedule

import (
	"fmt"
	"strings"
)

// GraphError reports a dependency cycle. Every system still blocked when
// the topological queue drained is named, not just one offending pair.
type GraphError struct {
	Blocked []string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("schedule: dependency cycle, blocked systems: %s",
		strings.Join(e.Blocked, ", "))
}

// MissingDependencyError reports an edge or condition referencing a system
// name that was never registered. Detected at build time.
type MissingDependencyError struct {
	Name string // the unknown system name
	Ref  string // where it was referenced, e.g. `edge "input" -> "move"`
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("schedule: unknown system %q referenced by %s", e.Name, e.Ref)
}
