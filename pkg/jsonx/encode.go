package jsonx

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// identity keys the in-progress set used for cycle detection. Only
// pointers, maps, and slices can close a cycle.
type identity struct {
	ptr  uintptr
	kind reflect.Kind
}

// encoder carries the per-call state of one Encode: the set of values
// currently on the recursion stack.
type encoder struct {
	codec  *Codec
	active map[identity]struct{}
}

func (e *encoder) encode(v any, hint reflect.Type) (any, error) {
	switch Classify(v) {
	case KindPrimitive:
		return primitiveValue(v), nil
	case KindArray:
		return e.encodeArray(v)
	case KindDict:
		return e.encodeDict(v)
	case KindSet:
		return e.encodeSet(asSet(v), hint)
	case KindMap:
		return e.encodeMap(asMap(v), hint)
	case KindRef:
		return e.encodeRef(v.(Ref), hint)
	case KindType:
		return e.encodeType(v.(reflect.Type))
	case KindInstance:
		return e.encodeInstance(v, hint)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotSerializable, v)
	}
}

// primitiveValue normalizes the primitive category: nil interfaces and
// nil pointers both come out as JSON null.
func primitiveValue(v any) any {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return v
}

// enter marks v as in progress and returns the matching leave function.
// Fails with ErrCyclicValue when v is already on the recursion stack.
func (e *encoder) enter(v any) (func(), error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		id := identity{ptr: rv.Pointer(), kind: rv.Kind()}
		if _, busy := e.active[id]; busy {
			return nil, fmt.Errorf("%w: %T", ErrCyclicValue, v)
		}
		e.active[id] = struct{}{}
		return func() { delete(e.active, id) }, nil
	}
	return func() {}, nil
}

func (e *encoder) encodeArray(v any) (any, error) {
	leave, err := e.enter(v)
	if err != nil {
		return nil, err
	}
	defer leave()

	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		enc, err := e.encode(rv.Index(i).Interface(), nil)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func (e *encoder) encodeDict(v any) (any, error) {
	leave, err := e.enter(v)
	if err != nil {
		return nil, err
	}
	defer leave()

	rv := reflect.ValueOf(v)
	raw := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		raw[iter.Key().String()] = iter.Value().Interface()
	}
	out, err := e.encodeRecord(raw)
	if err != nil {
		return nil, err
	}
	// A record whose own data uses the class key gets flag-wrapped so the
	// decoder cannot mistake it for an envelope.
	if _, collides := out[ClassKey]; collides {
		return map[string]any{StateKey: out, ClassKey: FlagDict}, nil
	}
	return out, nil
}

// encodeRecord encodes each entry of a record. Entries the format cannot
// carry are dropped, matching the drop-undefined-properties rule.
func (e *encoder) encodeRecord(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if Classify(v) == KindInvalid {
			continue
		}
		enc, err := e.encode(v, nil)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

func (e *encoder) encodeRef(r Ref, hint reflect.Type) (any, error) {
	if !r.HasID() {
		return nil, fmt.Errorf("%w: %T", ErrUnassignedRef, r)
	}
	if isRefType(hint) {
		// The caller's schema already says "reference": the bare id suffices.
		return r.ID(), nil
	}
	return map[string]any{ClassKey: r.ID()}, nil
}

func (e *encoder) encodeType(t reflect.Type) (any, error) {
	path, err := e.codec.classes.ResolvePath(t)
	if err != nil {
		return nil, fmt.Errorf("encode type: %w", err)
	}
	return map[string]any{ClassKey: FlagType, StateKey: path}, nil
}

func (e *encoder) encodeSet(s *Set, hint reflect.Type) (any, error) {
	leave, err := e.enter(s)
	if err != nil {
		return nil, err
	}
	defer leave()

	state := make([]any, len(s.elems))
	for i, el := range s.elems {
		enc, err := e.encode(el, nil)
		if err != nil {
			return nil, fmt.Errorf("set element %d: %w", i, err)
		}
		state[i] = enc
	}
	if canonType(hint) == setType {
		return state, nil
	}
	path, err := e.codec.classes.ResolvePath(setType)
	if err != nil {
		return nil, fmt.Errorf("encode set: %w", err)
	}
	return map[string]any{StateKey: state, ClassKey: path}, nil
}

func (e *encoder) encodeMap(m *Map, hint reflect.Type) (any, error) {
	leave, err := e.enter(m)
	if err != nil {
		return nil, err
	}
	defer leave()

	raw := make(map[string]any, m.Len())
	for _, k := range m.keys {
		raw[k] = m.entries[k]
	}
	state, err := e.encodeRecord(raw)
	if err != nil {
		return nil, err
	}
	if canonType(hint) == mapType {
		if _, collides := state[ClassKey]; collides {
			return nil, fmt.Errorf("%w: %q in map state", ErrReservedKey, ClassKey)
		}
		return state, nil
	}
	path, err := e.codec.classes.ResolvePath(mapType)
	if err != nil {
		return nil, fmt.Errorf("encode map: %w", err)
	}
	return e.wrapState(state, path), nil
}

func (e *encoder) encodeInstance(v any, hint reflect.Type) (any, error) {
	if t, ok := timeValue(v); ok {
		return e.encodeTime(t, hint)
	}

	leave, err := e.enter(v)
	if err != nil {
		return nil, err
	}
	defer leave()

	var raw map[string]any
	if sf, ok := v.(Stateful); ok {
		raw = sf.GetState()
	} else {
		raw = fieldState(v)
	}
	state, err := e.encodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("%T: %w", v, err)
	}

	typ := canonType(reflect.TypeOf(v))
	if canonType(hint) == typ {
		// Compact form: the decoder will supply the same hint, so the
		// state must stand alone without claiming the class key.
		if _, collides := state[ClassKey]; collides {
			return nil, fmt.Errorf("%w: %q in %s state", ErrReservedKey, ClassKey, typ)
		}
		return state, nil
	}
	path, err := e.codec.classes.ResolvePath(typ)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return e.wrapState(state, path), nil
}

// timeValue unwraps the two shapes a timestamp arrives in.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		return *t, true
	}
	return time.Time{}, false
}

func (e *encoder) encodeTime(t time.Time, hint reflect.Type) (any, error) {
	state := t.Format(time.RFC3339Nano)
	if canonType(hint) == timeType {
		return state, nil
	}
	path, err := e.codec.classes.ResolvePath(timeType)
	if err != nil {
		return nil, fmt.Errorf("encode time: %w", err)
	}
	return map[string]any{StateKey: state, ClassKey: path}, nil
}

// wrapState tags an encoded state with its classpath: record states carry
// the class key inline when it is free, everything else nests under the
// state key.
func (e *encoder) wrapState(state map[string]any, path string) map[string]any {
	if _, collides := state[ClassKey]; collides {
		return map[string]any{StateKey: state, ClassKey: path}
	}
	state[ClassKey] = path
	return state
}

// fieldState snapshots the exported fields of a struct (or its pointee)
// as a record, naming each entry by its json tag when present.
func fieldState(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		if name == "" {
			continue
		}
		out[name] = rv.Field(i).Interface()
	}
	return out
}

// fieldName returns the wire name of a struct field, or "" when the field
// does not serialize (unexported or tagged json:"-").
func fieldName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	if tag, ok := f.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// asSet normalizes the two Set representations the classifier accepts.
func asSet(v any) *Set {
	if p, ok := v.(*Set); ok {
		return p
	}
	s := v.(Set)
	return &s
}

// asMap normalizes the two Map representations the classifier accepts.
func asMap(v any) *Map {
	if p, ok := v.(*Map); ok {
		return p
	}
	m := v.(Map)
	return &m
}
