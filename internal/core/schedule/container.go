package schedule

import (
	"fmt"

	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
)

// Node is one registered system as seen by the compiled schedule.
// Exactly one of Run / RunExclusive is set, matching Kind.
type Node struct {
	Name         string
	Kind         Kind
	Access       access.Set
	Run          func(ctx Context) error
	RunExclusive func(w *ecs.World) error
	Cond         Condition
}

type edgeDecl struct {
	before string
	after  string
}

type condDecl struct {
	system string
	cond   Condition
}

// Container registers systems and ordering declarations, and compiles
// them into an immutable Schedule. Registration order is significant: it
// breaks ties when a conflict edge is synthesized between an unordered
// pair (earlier registration runs first).
type Container struct {
	nodes    []Node
	edges    []edgeDecl
	conds    []condDecl
	compiled *Schedule
}

func NewContainer() *Container {
	return &Container{
		nodes: make([]Node, 0, 16),
	}
}

// Add registers a concurrent system.
func (c *Container) Add(s System) *Container {
	c.nodes = append(c.nodes, Node{
		Name:   s.Name(),
		Kind:   KindConcurrent,
		Access: s.Access(),
		Run:    s.Run,
	})
	c.compiled = nil
	return c
}

// AddFunc registers a concurrent system from a name, declaration, and
// closure.
func (c *Container) AddFunc(name string, set access.Set, fn func(ctx Context) error) *Container {
	return c.Add(SystemFunc{SystemName: name, Declared: set, Fn: fn})
}

// AddExclusive registers a full-World system. It acts as a barrier: every
// earlier registration completes before it, and it completes before every
// later one.
func (c *Container) AddExclusive(s ExclusiveSystem) *Container {
	c.nodes = append(c.nodes, Node{
		Name:         s.Name(),
		Kind:         KindExclusive,
		RunExclusive: s.RunExclusive,
	})
	c.compiled = nil
	return c
}

// AddExclusiveFunc registers a full-World system from a closure.
func (c *Container) AddExclusiveFunc(name string, fn func(w *ecs.World) error) *Container {
	return c.AddExclusive(ExclusiveFunc{SystemName: name, Fn: fn})
}

// AddEdge declares that the system named before must complete before the
// system named after starts. Names resolve at Compile time.
func (c *Container) AddEdge(before, after string) *Container {
	c.edges = append(c.edges, edgeDecl{before: before, after: after})
	c.compiled = nil
	return c
}

// AddCondition gates the named system on cond for every run. A later call
// for the same system replaces the earlier condition.
func (c *Container) AddCondition(system string, cond Condition) *Container {
	c.conds = append(c.conds, condDecl{system: system, cond: cond})
	c.compiled = nil
	return c
}

// Len returns the number of registered systems.
func (c *Container) Len() int { return len(c.nodes) }

// Compile builds (and caches) the schedule. The cache invalidates on any
// mutation, so repeated runs of an unchanged container compile once.
func (c *Container) Compile() (*Schedule, error) {
	if c.compiled != nil {
		return c.compiled, nil
	}
	s, err := build(c)
	if err != nil {
		return nil, err
	}
	c.compiled = s
	return s, nil
}

func (c *Container) index() (map[string]int, error) {
	byName := make(map[string]int, len(c.nodes))
	for i, n := range c.nodes {
		if _, dup := byName[n.Name]; dup {
			return nil, fmt.Errorf("schedule: duplicate system name %q", n.Name)
		}
		byName[n.Name] = i
	}
	return byName, nil
}
