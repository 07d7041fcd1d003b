package schedule

import "fmt"

// Schedule is the compiled, immutable form of a Container: the dependency
// graph (explicit edges, exclusive barriers, synthesized conflict edges)
// reduced to the arrays runners consume. It is a plain value handed to a
// runner call rather than ambient state, so several runners can share one.
type Schedule struct {
	nodes      []Node
	dependents [][]int
	indeg      []int
	stages     [][]int
	reach      []bitset
}

// Len returns the number of systems.
func (s *Schedule) Len() int { return len(s.nodes) }

// Node returns system i in registration order.
func (s *Schedule) Node(i int) *Node { return &s.nodes[i] }

// InDegree returns how many dependencies system i waits on.
func (s *Schedule) InDegree(i int) int { return s.indeg[i] }

// Dependents returns the systems that wait on i, ascending.
func (s *Schedule) Dependents(i int) []int { return s.dependents[i] }

// Stages returns the topological frontiers: systems within one stage have
// no ordering edge between them and are concurrency-safe as a set.
func (s *Schedule) Stages() [][]int { return s.stages }

// StageCount returns the number of stages.
func (s *Schedule) StageCount() int { return len(s.stages) }

// Ordered reports whether a path orders system i before system j.
func (s *Schedule) Ordered(i, j int) bool { return s.reach[i].has(j) }

type bitset []uint64

func newBitset(n int) bitset    { return make(bitset, (n+63)/64) }
func (b bitset) set(i int)      { b[i/64] |= 1 << (i % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(i%64)) != 0 }

func build(c *Container) (*Schedule, error) {
	n := len(c.nodes)
	byName, err := c.index()
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, n)
	copy(nodes, c.nodes)

	// Attach conditions; a later declaration replaces an earlier one.
	for _, d := range c.conds {
		i, ok := byName[d.system]
		if !ok {
			return nil, &MissingDependencyError{Name: d.system, Ref: "a condition"}
		}
		nodes[i].Cond = d.cond
	}

	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}

	// Explicit edges.
	for _, e := range c.edges {
		ref := fmt.Sprintf("edge %q -> %q", e.before, e.after)
		bi, ok := byName[e.before]
		if !ok {
			return nil, &MissingDependencyError{Name: e.before, Ref: ref}
		}
		ai, ok := byName[e.after]
		if !ok {
			return nil, &MissingDependencyError{Name: e.after, Ref: ref}
		}
		if bi != ai {
			adj[bi][ai] = true
		}
	}

	// Exclusive systems are barriers: ordered after everything registered
	// before them and before everything registered after.
	for e := 0; e < n; e++ {
		if nodes[e].Kind != KindExclusive {
			continue
		}
		for i := 0; i < e; i++ {
			adj[i][e] = true
		}
		for j := e + 1; j < n; j++ {
			adj[e][j] = true
		}
	}

	// Synthesize a conflict edge for every pair that overlaps with at
	// least one write and is not already ordered either way. Earlier
	// registration wins, keeping the result deterministic.
	pre := closure(adj)
	for i := 0; i < n; i++ {
		if nodes[i].Kind == KindExclusive {
			continue
		}
		for j := i + 1; j < n; j++ {
			if nodes[j].Kind == KindExclusive {
				continue
			}
			if pre[i].has(j) || pre[j].has(i) {
				continue
			}
			if len(nodes[i].Access.Conflicts(nodes[j].Access)) > 0 {
				adj[i][j] = true
			}
		}
	}

	// Kahn's algorithm, grouping each zero-in-degree frontier into a
	// stage. Anything left with nonzero in-degree sits on a cycle.
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if adj[i][j] {
				indeg[j]++
			}
		}
	}

	remaining := make([]int, n)
	copy(remaining, indeg)
	done := make([]bool, n)
	var stages [][]int
	processed := 0
	for processed < n {
		var frontier []int
		for i := 0; i < n; i++ {
			if !done[i] && remaining[i] == 0 {
				frontier = append(frontier, i)
			}
		}
		if len(frontier) == 0 {
			break
		}
		for _, i := range frontier {
			done[i] = true
			processed++
			for j := 0; j < n; j++ {
				if adj[i][j] {
					remaining[j]--
				}
			}
		}
		stages = append(stages, frontier)
	}
	if processed < n {
		blocked := make([]string, 0, n-processed)
		for i := 0; i < n; i++ {
			if !done[i] {
				blocked = append(blocked, nodes[i].Name)
			}
		}
		return nil, &GraphError{Blocked: blocked}
	}

	dependents := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if adj[i][j] {
				dependents[i] = append(dependents[i], j)
			}
		}
	}

	return &Schedule{
		nodes:      nodes,
		dependents: dependents,
		indeg:      indeg,
		stages:     stages,
		reach:      closure(adj),
	}, nil
}

// closure computes per-node reachability by breadth-first walk. The graph
// may still contain cycles when called before cycle detection; the walk
// terminates regardless because visited nodes are never re-queued.
func closure(adj [][]bool) []bitset {
	n := len(adj)
	reach := make([]bitset, n)
	for i := 0; i < n; i++ {
		reach[i] = newBitset(n)
		queue := []int{i}
		seen := make([]bool, n)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := 0; j < n; j++ {
				if adj[cur][j] && !seen[j] {
					seen[j] = true
					reach[i].set(j)
					queue = append(queue, j)
				}
			}
		}
	}
	return reach
}
