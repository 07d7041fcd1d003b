package diag

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralforge/engine/internal/core/access"
	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
)

type posD struct{ X float64 }
type velD struct{ X float64 }

func noop(schedule.Context) error { return nil }

func nameOf(t reflect.Type) string { return t.Name() }

func TestRecorderMergesAccesses(t *testing.T) {
	rec := NewRecorder(1)
	rec.Record(0, access.NewSet(access.Read[posD]()))
	rec.Record(0, access.NewSet(access.Write[velD]()))

	got := rec.Recorded(0)
	assert.Len(t, got.Types(), 2)
	assert.True(t, got.Writes(reflect.TypeOf(velD{})))
	assert.False(t, got.Writes(reflect.TypeOf(posD{})))
}

func TestDetectAmbiguitiesUnorderedConflict(t *testing.T) {
	c := schedule.NewContainer()
	c.AddFunc("a", access.NewSet(), noop)
	c.AddFunc("b", access.NewSet(), noop)
	s, err := c.Compile()
	require.NoError(t, err)

	rec := NewRecorder(2)
	rec.Record(0, access.NewSet(access.Write[posD](), access.Read[velD]()))
	rec.Record(1, access.NewSet(access.Read[posD](), access.Read[velD]()))

	ambs := DetectAmbiguities(s, rec, nameOf)
	require.Len(t, ambs, 1)
	assert.Equal(t, "a", ambs[0].SystemA)
	assert.Equal(t, "b", ambs[0].SystemB)
	assert.Equal(t, []string{"posD"}, ambs[0].Types)
}

func TestDetectAmbiguitiesOrderedPairClean(t *testing.T) {
	c := schedule.NewContainer()
	c.AddFunc("a", access.NewSet(), noop)
	c.AddFunc("b", access.NewSet(), noop)
	c.AddEdge("a", "b")
	s, err := c.Compile()
	require.NoError(t, err)

	rec := NewRecorder(2)
	rec.Record(0, access.NewSet(access.Write[posD]()))
	rec.Record(1, access.NewSet(access.Write[posD]()))

	assert.Empty(t, DetectAmbiguities(s, rec, nameOf))
}

func TestDetectAmbiguitiesSkipsExclusive(t *testing.T) {
	c := schedule.NewContainer()
	c.AddExclusiveFunc("barrier", func(*ecs.World) error { return nil })
	c.AddFunc("a", access.NewSet(), noop)
	s, err := c.Compile()
	require.NoError(t, err)

	// Even a recorded access against the exclusive slot is ignored:
	// barriers order everything around them by construction.
	rec := NewRecorder(2)
	rec.Record(0, access.NewSet(access.Write[posD]()))
	rec.Record(1, access.NewSet(access.Write[posD]()))

	assert.Empty(t, DetectAmbiguities(s, rec, nameOf))
}

func TestReportCarriesRunIdentity(t *testing.T) {
	r1 := NewReport()
	r2 := NewReport()
	assert.NotEqual(t, r1.RunID, r2.RunID)
	assert.False(t, r1.StartedAt.IsZero())
}
