package jsonx

import "reflect"

// Ref is the capability an externally identified object exposes to the
// codec. The codec treats such objects as opaque: it reads the id on
// encode and hands the id to a Resolver on decode, nothing more.
type Ref interface {
	// HasID reports whether an id has been assigned.
	HasID() bool
	// ID returns the assigned identifier. Meaningless when HasID is false.
	ID() int64
}

// Resolver turns an entity identifier into a live handle. Implementations
// may return unloaded stubs; Decode never waits for materialization, the
// caller does.
type Resolver interface {
	ResolveEntity(id int64) (Ref, error)
}

// Stateful lets a class control its own serialized state instead of the
// default reflection over exported fields. GetState runs on encode;
// SetState runs on a fresh instance during decode, after the state record
// has been recursively decoded.
type Stateful interface {
	GetState() map[string]any
	SetState(state map[string]any) error
}

var refType = reflect.TypeOf((*Ref)(nil)).Elem()

// isRefType reports whether values of type t (or *t) satisfy Ref.
func isRefType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Implements(refType) || reflect.PointerTo(t).Implements(refType)
}
