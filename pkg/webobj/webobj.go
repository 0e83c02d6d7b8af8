// Package webobj defines the handle type for persistent web objects:
// externally identified records that the codec serializes as bare numeric
// references and the registry cache materializes lazily.
package webobj

import (
	"errors"

	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
)

// Object errors.
var (
	ErrInvalidID        = errors.New("invalid object id")
	ErrIDAssigned       = errors.New("object already has an id")
	ErrNotLoaded        = errors.New("object is not loaded")
	ErrPropertyNotFound = errors.New("property not found")
)

// Object is a handle to a persistent web object. A fresh object starts
// without an id (the store assigns one on first save); a stub carries an
// id but no data until it is loaded. The codec only ever touches the id.
type Object struct {
	id     int64
	loaded bool
	data   map[string]any
}

var _ jsonx.Ref = (*Object)(nil)
var _ jsonx.Stateful = (*Object)(nil)

// New returns a fresh, editable object with no id assigned.
func New() *Object {
	return &Object{loaded: true, data: make(map[string]any)}
}

// Stub returns an unloaded handle for an existing id. Property access
// fails with ErrNotLoaded until data is attached.
func Stub(id int64) *Object {
	return &Object{id: id}
}

// HasID reports whether the object has an assigned id.
func (o *Object) HasID() bool {
	return o.id != 0
}

// ID returns the assigned id, 0 when unassigned.
func (o *Object) ID() int64 {
	return o.id
}

// AssignID gives the object its identity. Assignment is one-shot:
// re-assigning the same id is a no-op, a different id fails with
// ErrIDAssigned.
func (o *Object) AssignID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if o.id != 0 && o.id != id {
		return ErrIDAssigned
	}
	o.id = id
	return nil
}

// Loaded reports whether the object's data is present.
func (o *Object) Loaded() bool {
	return o.loaded
}

// SetData attaches the full property record, marking the object loaded.
func (o *Object) SetData(data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	o.data = data
	o.loaded = true
}

// Data returns a shallow copy of the property record.
func (o *Object) Data() map[string]any {
	out := make(map[string]any, len(o.data))
	for k, v := range o.data {
		out[k] = v
	}
	return out
}

// Get returns a property value. Fails with ErrNotLoaded on a stub and
// ErrPropertyNotFound when the property is absent.
func (o *Object) Get(name string) (any, error) {
	if !o.loaded {
		return nil, ErrNotLoaded
	}
	v, ok := o.data[name]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	return v, nil
}

// Set stores a property value. Fails with ErrNotLoaded on a stub.
func (o *Object) Set(name string, v any) error {
	if !o.loaded {
		return ErrNotLoaded
	}
	o.data[name] = v
	return nil
}

// Delete removes a property. Fails with ErrNotLoaded on a stub and
// ErrPropertyNotFound when the property is absent.
func (o *Object) Delete(name string) error {
	if !o.loaded {
		return ErrNotLoaded
	}
	if _, ok := o.data[name]; !ok {
		return ErrPropertyNotFound
	}
	delete(o.data, name)
	return nil
}

// GetState exposes the property record to the codec.
func (o *Object) GetState() map[string]any {
	return o.Data()
}

// SetState attaches a decoded property record, marking the object loaded.
func (o *Object) SetState(state map[string]any) error {
	o.SetData(state)
	return nil
}
