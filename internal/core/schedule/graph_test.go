package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
)

type posC struct{ X float64 }
type velC struct{ X float64 }

func noop(Context) error { return nil }

func addN(c *Container, names ...string) {
	for _, n := range names {
		c.AddFunc(n, access.NewSet(), noop)
	}
}

func stageOf(s *Schedule, idx int) int {
	for si, stage := range s.Stages() {
		for _, i := range stage {
			if i == idx {
				return si
			}
		}
	}
	return -1
}

func TestCompileLinearChain(t *testing.T) {
	c := NewContainer()
	addN(c, "a", "b", "c")
	c.AddEdge("a", "b")
	c.AddEdge("b", "c")

	s, err := c.Compile()
	require.NoError(t, err)
	assert.Equal(t, 3, s.StageCount())
	assert.Equal(t, 0, s.InDegree(0))
	assert.Equal(t, []int{1}, s.Dependents(0))
	assert.True(t, s.Ordered(0, 2), "ordering is transitive")
	assert.False(t, s.Ordered(2, 0))
}

func TestCompileStageCountNeverExceedsSystemCount(t *testing.T) {
	c := NewContainer()
	addN(c, "a", "b", "c", "d")
	c.AddEdge("a", "d")
	s, err := c.Compile()
	require.NoError(t, err)
	assert.LessOrEqual(t, s.StageCount(), s.Len())
}

func TestCompileCycleNamesEveryBlockedSystem(t *testing.T) {
	c := NewContainer()
	addN(c, "free", "a", "b", "c", "tail")
	c.AddEdge("a", "b")
	c.AddEdge("b", "c")
	c.AddEdge("c", "a")
	c.AddEdge("c", "tail") // downstream of the cycle, blocked too

	_, err := c.Compile()
	require.Error(t, err)
	var gerr *GraphError
	require.ErrorAs(t, err, &gerr)
	assert.ElementsMatch(t, []string{"a", "b", "c", "tail"}, gerr.Blocked)
}

func TestCompileUnknownEdgeName(t *testing.T) {
	c := NewContainer()
	addN(c, "a")
	c.AddEdge("a", "ghost")

	_, err := c.Compile()
	var merr *MissingDependencyError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "ghost", merr.Name)
}

func TestCompileUnknownConditionTarget(t *testing.T) {
	c := NewContainer()
	addN(c, "a")
	c.AddCondition("ghost", func(*ecs.World) bool { return true })

	_, err := c.Compile()
	var merr *MissingDependencyError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "ghost", merr.Name)
}

func TestCompileDuplicateName(t *testing.T) {
	c := NewContainer()
	addN(c, "a", "a")
	_, err := c.Compile()
	assert.Error(t, err)
}

func TestConflictPairGetsSynthesizedEdge(t *testing.T) {
	c := NewContainer()
	c.AddFunc("writer", access.NewSet(access.Write[posC]()), noop)
	c.AddFunc("reader", access.NewSet(access.Read[posC]()), noop)

	s, err := c.Compile()
	require.NoError(t, err)
	// Earlier registration wins: writer -> reader.
	assert.True(t, s.Ordered(0, 1))
	assert.NotEqual(t, stageOf(s, 0), stageOf(s, 1),
		"conflicting pair must never share a stage")
}

func TestConflictEdgeRespectsExplicitOrder(t *testing.T) {
	c := NewContainer()
	c.AddFunc("writer", access.NewSet(access.Write[posC]()), noop)
	c.AddFunc("reader", access.NewSet(access.Read[posC]()), noop)
	// Explicit opposite order must win over registration order.
	c.AddEdge("reader", "writer")

	s, err := c.Compile()
	require.NoError(t, err)
	assert.True(t, s.Ordered(1, 0))
	assert.False(t, s.Ordered(0, 1))
}

func TestNonConflictingSystemsShareStage(t *testing.T) {
	c := NewContainer()
	c.AddFunc("r1", access.NewSet(access.Read[posC]()), noop)
	c.AddFunc("r2", access.NewSet(access.Read[posC](), access.Read[velC]()), noop)

	s, err := c.Compile()
	require.NoError(t, err)
	assert.Equal(t, 1, s.StageCount(), "read-only overlap is not a conflict")
}

func TestExclusiveIsBarrier(t *testing.T) {
	c := NewContainer()
	addN(c, "before1", "before2")
	c.AddExclusiveFunc("barrier", func(*ecs.World) error { return nil })
	addN(c, "after1")

	s, err := c.Compile()
	require.NoError(t, err)
	assert.True(t, s.Ordered(0, 2))
	assert.True(t, s.Ordered(1, 2))
	assert.True(t, s.Ordered(2, 3))
	for _, stage := range s.Stages() {
		if len(stage) > 1 {
			for _, i := range stage {
				assert.NotEqual(t, KindExclusive, s.Node(i).Kind,
					"an exclusive system never shares a stage")
			}
		}
	}
}

func TestCompileCachedUntilMutated(t *testing.T) {
	c := NewContainer()
	addN(c, "a")
	s1, err := c.Compile()
	require.NoError(t, err)
	s2, err := c.Compile()
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	addN(c, "b")
	s3, err := c.Compile()
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, s3.Len())
}
