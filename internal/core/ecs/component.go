package ecs

// Removable is implemented by all component stores so the World can
// bulk-remove an entity's data from every store on despawn.
type Removable interface {
	Remove(e Entity)
	Has(e Entity) bool
}

// Store is a generic typed map store for components.
// No reflect on the hot path and no interface{} boxing.
type Store[T any] struct {
	data map[Entity]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[Entity]*T, 256),
	}
}

func (s *Store[T]) Set(e Entity, c *T) {
	s.data[e] = c
}

func (s *Store[T]) Get(e Entity) (*T, bool) {
	c, ok := s.data[e]
	return c, ok
}

func (s *Store[T]) Remove(e Entity) {
	delete(s.data, e)
}

func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.data[e]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Each(fn func(Entity, *T)) {
	for e, c := range s.data {
		fn(e, c)
	}
}

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(Entity, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for e, a := range sa.data {
			if b, ok := sb.data[e]; ok {
				fn(e, a, b)
			}
		}
	} else {
		for e, b := range sb.data {
			if a, ok := sa.data[e]; ok {
				fn(e, a, b)
			}
		}
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(Entity, *A, *B, *C)) {
	// Iterate the smallest store
	smallest := sa.Len()
	which := 0
	if sb.Len() < smallest {
		smallest = sb.Len()
		which = 1
	}
	if sc.Len() < smallest {
		which = 2
	}

	switch which {
	case 0:
		for e, a := range sa.data {
			if b, ok := sb.data[e]; ok {
				if c, ok := sc.data[e]; ok {
					fn(e, a, b, c)
				}
			}
		}
	case 1:
		for e, b := range sb.data {
			if a, ok := sa.data[e]; ok {
				if c, ok := sc.data[e]; ok {
					fn(e, a, b, c)
				}
			}
		}
	case 2:
		for e, c := range sc.data {
			if a, ok := sa.data[e]; ok {
				if b, ok := sb.data[e]; ok {
					fn(e, a, b, c)
				}
			}
		}
	}
}
