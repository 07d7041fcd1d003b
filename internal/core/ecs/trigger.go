package ecs

import "reflect"

// TriggerKind classifies a component mutation for observer dispatch.
type TriggerKind int

const (
	// TriggerAdd fires only when a component is inserted on an entity
	// that did not have one.
	TriggerAdd TriggerKind = iota
	// TriggerInsert fires on every insertion, first or replacement.
	TriggerInsert
	// TriggerRemove fires on removal, including despawn.
	TriggerRemove
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerAdd:
		return "add"
	case TriggerInsert:
		return "insert"
	case TriggerRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// TriggerSink receives mutation notifications from the World. The observer
// registry implements it; a nil sink means mutations are untracked.
//
// Wants is consulted before Push so unobserved mutations cost one map
// probe. It must answer from a key set that stays valid even while the
// sink's handlers are detached mid-flush.
type TriggerSink interface {
	Wants(t reflect.Type, kind TriggerKind) bool
	Push(t reflect.Type, kind TriggerKind, e Entity)
}
