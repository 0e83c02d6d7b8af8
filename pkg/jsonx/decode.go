package jsonx

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// decoder is the per-call state of one Decode. It only carries the codec;
// decoding cannot cycle because JSON trees are finite.
type decoder struct {
	codec *Codec
}

func (d *decoder) decode(state any, hint reflect.Type) (any, error) {
	switch s := state.(type) {
	case map[string]any:
		return d.decodeRecord(s, hint)
	case []any:
		if canonType(hint) == setType {
			return d.construct(setType, s)
		}
		out := make([]any, len(s))
		for i, el := range s {
			dec, err := d.decode(el, nil)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = dec
		}
		return out, nil
	default:
		// Primitive. Two compact forms hide here: a bare id when the
		// caller expects a reference, and a bare timestamp string when
		// the caller expects a time.
		if isRefType(hint) {
			if id, ok := entityID(state); ok {
				return d.resolveEntity(id)
			}
		}
		if canonType(hint) == timeType {
			if _, ok := state.(string); ok {
				return d.construct(timeType, state)
			}
		}
		return state, nil
	}
}

func (d *decoder) decodeRecord(s map[string]any, hint reflect.Type) (any, error) {
	cls, tagged := s[ClassKey]
	if !tagged {
		if ht := canonType(hint); ht != nil && ht.Kind() == reflect.Struct {
			return d.construct(ht, s)
		}
		return d.decodeDict(s)
	}

	// A numeric class key is an entity reference; resolution
	// short-circuits everything else in the envelope.
	if id, ok := entityID(cls); ok {
		return d.resolveEntity(id)
	}

	switch cls {
	case FlagDict:
		inner, err := d.envelopeState(s)
		if err != nil {
			return nil, err
		}
		rec, ok := inner.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s state is not a record", ErrMalformedEnvelope, FlagDict)
		}
		return d.decodeDict(rec)
	case FlagType:
		raw, ok := s[StateKey]
		if !ok {
			return nil, fmt.Errorf("%w: %s envelope without %q", ErrMalformedEnvelope, FlagType, StateKey)
		}
		if len(s) != 2 {
			return nil, fmt.Errorf("%w: unexpected keys alongside %q and %q", ErrMalformedEnvelope, ClassKey, StateKey)
		}
		path, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s state must be a classpath string, got %T", ErrMalformedEnvelope, FlagType, raw)
		}
		return d.codec.classes.ResolveClass(path)
	}

	path, ok := cls.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must hold a classpath, a flag, or an id, got %v", ErrMalformedEnvelope, ClassKey, cls)
	}
	obj, err := d.codec.classes.ResolveClass(path)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(reflect.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not name a class", ErrMalformedEnvelope, path)
	}
	inner, err := d.envelopeState(s)
	if err != nil {
		return nil, err
	}
	return d.construct(t, inner)
}

// envelopeState extracts the inner state of a tagged envelope: the value
// under the state key when present (nothing else may sit alongside),
// otherwise the envelope itself minus the class key.
func (d *decoder) envelopeState(s map[string]any) (any, error) {
	if inner, ok := s[StateKey]; ok {
		if len(s) != 2 {
			return nil, fmt.Errorf("%w: unexpected keys alongside %q and %q", ErrMalformedEnvelope, ClassKey, StateKey)
		}
		return inner, nil
	}
	rest := make(map[string]any, len(s)-1)
	for k, v := range s {
		if k == ClassKey {
			continue
		}
		rest[k] = v
	}
	return rest, nil
}

func (d *decoder) decodeDict(s map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s))
	for k, v := range s {
		dec, err := d.decode(v, nil)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = dec
	}
	return out, nil
}

func (d *decoder) resolveEntity(id int64) (any, error) {
	if d.codec.resolver == nil {
		return nil, fmt.Errorf("%w: reference %d", ErrNoResolver, id)
	}
	ref, err := d.codec.resolver.ResolveEntity(id)
	if err != nil {
		return nil, fmt.Errorf("resolve entity %d: %w", id, err)
	}
	return ref, nil
}

// construct rebuilds an instance of t from its decoded-or-raw state.
func (d *decoder) construct(t reflect.Type, state any) (any, error) {
	switch t {
	case timeType:
		str, ok := state.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s state must be a string, got %T", ErrMalformedEnvelope, pathTime, state)
		}
		ts, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return ts, nil

	case setType:
		arr, ok := state.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s state must be an array, got %T", ErrMalformedEnvelope, pathSet, state)
		}
		set := NewSet()
		for i, el := range arr {
			dec, err := d.decode(el, nil)
			if err != nil {
				return nil, fmt.Errorf("set element %d: %w", i, err)
			}
			set.Add(dec)
		}
		return set, nil

	case mapType:
		rec, ok := state.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s state must be a record, got %T", ErrMalformedEnvelope, pathMap, state)
		}
		// JSON objects carry no order; sorted keys keep decoding
		// deterministic.
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			dec, err := d.decode(rec[k], nil)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, dec)
		}
		return m, nil
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: cannot construct %s", ErrMalformedEnvelope, t)
	}
	rec, ok := state.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s state must be a record, got %T", ErrMalformedEnvelope, t, state)
	}

	pv := reflect.New(t)
	if sf, ok := pv.Interface().(Stateful); ok {
		decoded := make(map[string]any, len(rec))
		for k, v := range rec {
			dec, err := d.decode(v, nil)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			decoded[k] = dec
		}
		if err := sf.SetState(decoded); err != nil {
			return nil, fmt.Errorf("set state of %s: %w", t, err)
		}
		return pv.Interface(), nil
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		if name == "" {
			continue
		}
		raw, present := rec[name]
		if !present {
			continue
		}
		dec, err := d.decode(raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if err := assignField(pv.Elem().Field(i), dec); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}
	return pv.Interface(), nil
}

// assignField stores a decoded value into a struct field, converting
// between numeric widths (JSON numbers arrive as float64), unwrapping
// pointer instances when the field wants the value form, and rebuilding
// typed slices and maps element-wise (decoded containers arrive as
// []any and map[string]any).
func assignField(fv reflect.Value, v any) error {
	if v == nil {
		return nil // field keeps its zero value
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}
	if rv.Kind() == reflect.Pointer && rv.Elem().Type().AssignableTo(fv.Type()) {
		fv.Set(rv.Elem())
		return nil
	}
	if isConvertibleKind(rv.Kind()) && isConvertibleKind(fv.Kind()) && rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
		return nil
	}

	switch fv.Kind() {
	case reflect.Slice:
		if rv.Kind() == reflect.Slice {
			out := reflect.MakeSlice(fv.Type(), rv.Len(), rv.Len())
			for i := 0; i < rv.Len(); i++ {
				if err := assignField(out.Index(i), rv.Index(i).Interface()); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			fv.Set(out)
			return nil
		}
	case reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Len() == fv.Len() {
			for i := 0; i < rv.Len(); i++ {
				if err := assignField(fv.Index(i), rv.Index(i).Interface()); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		}
	case reflect.Map:
		if rv.Kind() == reflect.Map && fv.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(fv.Type(), rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				ev := reflect.New(fv.Type().Elem()).Elem()
				if err := assignField(ev, iter.Value().Interface()); err != nil {
					return fmt.Errorf("key %q: %w", iter.Key().String(), err)
				}
				out.SetMapIndex(iter.Key().Convert(fv.Type().Key()), ev)
			}
			fv.Set(out)
			return nil
		}
	}
	return fmt.Errorf("cannot assign %s to %s", rv.Type(), fv.Type())
}

// isConvertibleKind limits implicit conversions to scalar kinds so a
// float64 can fill an int field but nothing surprising happens between
// composite types.
func isConvertibleKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
		return true
	}
	return false
}
