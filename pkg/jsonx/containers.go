package jsonx

import "reflect"

// Set is an insertion-ordered collection of distinct values. It exists so
// set semantics survive serialization: a Set encodes as an array tagged
// with the ":Set" classpath, while a plain slice stays a plain array.
type Set struct {
	elems []any
}

// NewSet returns a Set holding the given elements, first occurrence wins.
func NewSet(elems ...any) *Set {
	s := &Set{}
	for _, v := range elems {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was absent.
func (s *Set) Add(v any) bool {
	if s.Has(v) {
		return false
	}
	s.elems = append(s.elems, v)
	return true
}

// Has reports whether v is present. Deep equality, so slices and records
// compare by content.
func (s *Set) Has(v any) bool {
	for _, e := range s.elems {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v any) bool {
	for i, e := range s.elems {
		if reflect.DeepEqual(e, v) {
			s.elems = append(s.elems[:i], s.elems[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.elems)
}

// Values returns the elements in insertion order. The slice is a copy.
func (s *Set) Values() []any {
	out := make([]any, len(s.elems))
	copy(out, s.elems)
	return out
}

// Map is an insertion-ordered string-keyed map. It exists for the same
// reason as Set: a Map encodes as a record tagged with the ":Map"
// classpath, while a plain Go map stays an untagged record.
//
// Insertion order holds in memory only. The wire state is a JSON
// object, which carries no order, so a Map decoded from text comes back
// with its keys sorted.
type Map struct {
	keys    []string
	entries map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

// Set stores v under key, preserving the key's original position when it
// already exists.
func (m *Map) Set(key string, v any) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}
