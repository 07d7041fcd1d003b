package access

import "reflect"

// Op classifies one element of a declared access set.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpOptionalRead
	OpOptionalWrite
	OpResourceRead
	OpResourceWrite
)

func (o Op) write() bool {
	return o == OpWrite || o == OpOptionalWrite || o == OpResourceWrite
}

// Element is one declared access: a component or resource type plus how it
// is touched. Optional elements still count for conflict purposes: a
// system that may write T must be ordered against everything reading T.
type Element struct {
	Type reflect.Type
	Op   Op
}

// Read declares shared access to component T.
func Read[T any]() Element { return Element{Type: typeOf[T](), Op: OpRead} }

// Write declares exclusive access to component T.
func Write[T any]() Element { return Element{Type: typeOf[T](), Op: OpWrite} }

// OptionalRead declares shared access to T that the system may skip.
func OptionalRead[T any]() Element { return Element{Type: typeOf[T](), Op: OpOptionalRead} }

// OptionalWrite declares exclusive access to T that the system may skip.
func OptionalWrite[T any]() Element { return Element{Type: typeOf[T](), Op: OpOptionalWrite} }

// ResourceRead declares shared access to resource T.
func ResourceRead[T any]() Element { return Element{Type: typeOf[T](), Op: OpResourceRead} }

// ResourceWrite declares exclusive access to resource T.
func ResourceWrite[T any]() Element { return Element{Type: typeOf[T](), Op: OpResourceWrite} }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Set is an ordered tuple of access elements declared by one system.
type Set struct {
	elems []Element
}

// NewSet builds a set from its elements. Declaration order is preserved;
// lock acquisition follows it so identical declarations acquire in the
// same order everywhere.
func NewSet(elems ...Element) Set {
	return Set{elems: elems}
}

// Empty reports whether the set declares nothing.
func (s Set) Empty() bool { return len(s.elems) == 0 }

// Elements returns the declared elements in order.
func (s Set) Elements() []Element { return s.elems }

// Merge returns a set containing the elements of both sets.
func (s Set) Merge(other Set) Set {
	out := make([]Element, 0, len(s.elems)+len(other.elems))
	out = append(out, s.elems...)
	out = append(out, other.elems...)
	return Set{elems: out}
}

// normalized collapses duplicate types, keeping the strongest access
// (write wins over read).
func (s Set) normalized() map[reflect.Type]bool {
	m := make(map[reflect.Type]bool, len(s.elems))
	for _, e := range s.elems {
		if e.Op.write() {
			m[e.Type] = true
		} else if _, ok := m[e.Type]; !ok {
			m[e.Type] = false
		}
	}
	return m
}

// Types returns every distinct type the set touches.
func (s Set) Types() []reflect.Type {
	norm := s.normalized()
	out := make([]reflect.Type, 0, len(norm))
	for _, e := range s.elems {
		if _, ok := norm[e.Type]; ok {
			delete(norm, e.Type)
			out = append(out, e.Type)
		}
	}
	return out
}

// Writes reports whether the set declares write access to t.
func (s Set) Writes(t reflect.Type) bool {
	return s.normalized()[t]
}

// Conflicts returns every type both sets touch where at least one side
// writes. An empty result means the two sets can run concurrently.
func (s Set) Conflicts(other Set) []reflect.Type {
	a := s.normalized()
	b := other.normalized()
	var out []reflect.Type
	// Walk s's declaration order for deterministic output.
	seen := make(map[reflect.Type]struct{}, len(a))
	for _, e := range s.elems {
		if _, dup := seen[e.Type]; dup {
			continue
		}
		seen[e.Type] = struct{}{}
		bw, ok := b[e.Type]
		if !ok {
			continue
		}
		if a[e.Type] || bw {
			out = append(out, e.Type)
		}
	}
	return out
}
