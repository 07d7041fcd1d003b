package ecs

// Entity is a handle into the allocator: a slot index plus the world tick
// the slot was allocated on. The pair is the identity: a stale handle
// whose slot was recycled carries an older spawn tick and compares unequal
// to the live occupant. Per-slot flags are mutable bookkeeping and live in
// the allocator, not the handle, so Entity stays comparable and hashable.
type Entity struct {
	index     uint32
	spawnTick uint64
}

func (e Entity) Index() uint32     { return e.index }
func (e Entity) SpawnTick() uint64 { return e.spawnTick }
func (e Entity) IsZero() bool      { return e == Entity{} }

type slot struct {
	spawnTick uint64
	flags     uint32
	alive     bool
}

// Allocator issues and recycles entity handles with a LIFO free list.
// Only the allocator mutates liveness; everything else holds copies.
type Allocator struct {
	slots    []slot
	freeList []uint32
	live     int
}

func NewAllocator() *Allocator {
	return &Allocator{
		slots:    make([]slot, 0, 1024),
		freeList: make([]uint32, 0, 256),
	}
}

// Allocate returns a live entity stamped with tick, reusing the most
// recently freed slot before growing. A recycled slot never re-issues a
// spawn tick an earlier handle at that index carried: deallocation bumps
// the slot tick past the dead handle's, and allocation takes the max of
// that and the world tick.
func (a *Allocator) Allocate(tick uint64) Entity {
	var idx uint32
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	if tick > s.spawnTick {
		s.spawnTick = tick
	}
	s.flags = 0
	s.alive = true
	a.live++
	return Entity{index: idx, spawnTick: s.spawnTick}
}

// AllocateMany allocates count entities at once, draining the free list
// first and then growing the slot table in a single append.
func (a *Allocator) AllocateMany(count int, tick uint64) []Entity {
	out := make([]Entity, 0, count)
	for len(out) < count && len(a.freeList) > 0 {
		out = append(out, a.Allocate(tick))
	}
	if remain := count - len(out); remain > 0 {
		base := len(a.slots)
		a.slots = append(a.slots, make([]slot, remain)...)
		for i := 0; i < remain; i++ {
			idx := uint32(base + i)
			s := &a.slots[idx]
			if tick > s.spawnTick {
				s.spawnTick = tick
			}
			s.alive = true
			a.live++
			out = append(out, Entity{index: idx, spawnTick: s.spawnTick})
		}
	}
	return out
}

// Deallocate kills e and returns whether it was live. A handle that is
// already dead, or whose spawn tick does not match the slot, is rejected
// without panicking; that mismatch is the ABA guard.
func (a *Allocator) Deallocate(e Entity) bool {
	if int(e.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[e.index]
	if !s.alive || s.spawnTick != e.spawnTick {
		return false
	}
	s.alive = false
	s.spawnTick++ // invalidate any copies of e still in flight
	a.freeList = append(a.freeList, e.index)
	a.live--
	return true
}

// Alive reports whether e refers to the slot's current occupant.
func (a *Allocator) Alive(e Entity) bool {
	if int(e.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[e.index]
	return s.alive && s.spawnTick == e.spawnTick
}

// Len returns the number of live entities.
func (a *Allocator) Len() int { return a.live }

// EachAlive calls fn for every live entity in index order.
func (a *Allocator) EachAlive(fn func(Entity)) {
	for i := range a.slots {
		if a.slots[i].alive {
			fn(Entity{index: uint32(i), spawnTick: a.slots[i].spawnTick})
		}
	}
}

// Flags returns the per-slot flags for e, or 0 if e is stale.
func (a *Allocator) Flags(e Entity) uint32 {
	if !a.Alive(e) {
		return 0
	}
	return a.slots[e.index].flags
}

// SetFlags overwrites the per-slot flags for e. No-op on a stale handle.
func (a *Allocator) SetFlags(e Entity, flags uint32) {
	if a.Alive(e) {
		a.slots[e.index].flags = flags
	}
}
