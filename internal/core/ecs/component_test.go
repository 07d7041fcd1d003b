package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type joinA struct{ N int }
type joinB struct{ N int }
type joinC struct{ N int }

func TestEach3VisitsOnlyEntitiesWithAllThree(t *testing.T) {
	a := NewAllocator()
	es := a.AllocateMany(5, 1)

	// Each case makes a different store the smallest, so every iteration
	// branch joins the same intersection.
	tests := []struct {
		name       string
		na, nb, nc int // entities [0,n) populated per store
	}{
		{"a smallest", 2, 3, 4},
		{"b smallest", 4, 2, 3},
		{"c smallest", 3, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, sb, sc := NewStore[joinA](), NewStore[joinB](), NewStore[joinC]()
			for i := 0; i < tt.na; i++ {
				sa.Set(es[i], &joinA{N: i})
			}
			for i := 0; i < tt.nb; i++ {
				sb.Set(es[i], &joinB{N: i})
			}
			for i := 0; i < tt.nc; i++ {
				sc.Set(es[i], &joinC{N: i})
			}

			seen := map[Entity]bool{}
			Each3(sa, sb, sc, func(e Entity, ca *joinA, cb *joinB, cc *joinC) {
				assert.Equal(t, ca.N, cb.N)
				assert.Equal(t, ca.N, cc.N)
				seen[e] = true
			})

			assert.Len(t, seen, 2, "only the first two entities carry all three")
			assert.True(t, seen[es[0]])
			assert.True(t, seen[es[1]])
		})
	}
}
