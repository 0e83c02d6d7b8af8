package jsonx

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mesh-intelligence/jsonx/pkg/classpath"
)

// Reserved wire keys. Application records may not use them unless the
// whole record is flag-wrapped, which the encoder does automatically.
const (
	ClassKey = "@"
	StateKey = "="
)

// Flag constants carried under ClassKey. The parenthesized form cannot
// collide with real classpaths, which always contain a colon.
const (
	FlagType = "(type)" // the tagged value is a class object, not an instance
	FlagDict = "(dict)" // the tagged value is a plain record whose own data uses ClassKey
)

// Codec converts live object graphs to JSON-safe trees and back. It reads
// the classpath registry and delegates entity references to the resolver;
// both are injected at construction and never mutated, so a Codec is safe
// for concurrent use.
type Codec struct {
	classes  *classpath.Registry
	resolver Resolver
}

// New returns a Codec over the given registry. resolver may be nil, in
// which case decoding an entity reference fails with ErrNoResolver.
func New(classes *classpath.Registry, resolver Resolver) *Codec {
	return &Codec{classes: classes, resolver: resolver}
}

// Encode converts v into a JSON-safe tree: primitives pass through,
// arrays and records recurse, entity references collapse to their ids,
// and everything with class identity gets a tagged envelope.
func (c *Codec) Encode(v any) (any, error) {
	return c.EncodeAs(v, nil)
}

// EncodeAs is Encode with an expected-type hint. When the value's own
// type matches the hint the class tag is elided and the bare state is
// returned, on the premise that the decoder will supply the same hint.
func (c *Codec) EncodeAs(v any, hint reflect.Type) (any, error) {
	e := encoder{codec: c, active: make(map[identity]struct{})}
	return e.encode(v, hint)
}

// Decode reconstructs the value a JSON-safe tree was encoded from.
// Entity references resolve through the codec's Resolver into handles
// that are returned as-is; Decode never loads them.
func (c *Codec) Decode(state any) (any, error) {
	return c.DecodeAs(state, nil)
}

// DecodeAs is Decode with an expected-type hint, the mirror of EncodeAs:
// untagged records (and bare reference ids) decode as instances of the
// hinted type.
func (c *Codec) DecodeAs(state any, hint reflect.Type) (any, error) {
	d := decoder{codec: c}
	return d.decode(state, hint)
}

// Marshal encodes v and renders the resulting tree as JSON text.
func (c *Codec) Marshal(v any) ([]byte, error) {
	state, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

// Unmarshal parses JSON text and decodes the resulting tree.
func (c *Codec) Unmarshal(data []byte) (any, error) {
	var state any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return c.Decode(state)
}

// Built-in types registered under bare paths.
var (
	setType  = reflect.TypeOf(Set{})
	mapType  = reflect.TypeOf(Map{})
	timeType = reflect.TypeOf(time.Time{})
)

// Bare classpaths for the built-ins.
const (
	pathSet  = ":Set"
	pathMap  = ":Map"
	pathTime = ":Time"
)

// RegisterBuiltins records the container and time types every registry
// needs before the codec can tag them. Boot code calls this first, then
// adds application classes.
func RegisterBuiltins(b *classpath.Builder) error {
	builtins := []struct {
		path string
		t    reflect.Type
	}{
		{pathSet, setType},
		{pathMap, mapType},
		{pathTime, timeType},
	}
	for _, bi := range builtins {
		if err := b.Register(bi.path, bi.t); err != nil {
			return err
		}
	}
	return nil
}

// canonType strips one level of pointer so *T and T compare equal in
// hint checks and path lookups.
func canonType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// entityID reports whether v is a well-formed entity identifier: any
// integer, or an integral float (JSON numbers parse as float64).
func entityID(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return entityID(float64(n))
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
