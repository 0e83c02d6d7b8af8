package jsonx

import "reflect"

// Kind is the closed set of categories the codec distinguishes. Every
// value is classified exactly once at the codec boundary and then
// pattern-matched downstream; nothing re-inspects prototypes mid-flight.
type Kind uint8

// Classification results, in the priority order the classifier applies.
const (
	KindInvalid   Kind = iota // not representable (func, chan, complex, non-string-keyed map)
	KindPrimitive             // nil, bool, string, integer, float
	KindArray                 // slice or array
	KindDict                  // string-keyed map with no class identity
	KindSet                   // *Set container
	KindMap                   // *Map container
	KindRef                   // externally identified object (Ref capability)
	KindType                  // a class object itself (reflect.Type)
	KindInstance              // struct or pointer-to-struct of a registered class
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindRef:
		return "ref"
	case KindType:
		return "type"
	case KindInstance:
		return "instance"
	default:
		return "invalid"
	}
}

// Classify maps v onto exactly one Kind. Pure; never fails. Values the
// format cannot carry classify as KindInvalid and the codec decides
// whether to drop or reject them at the point of use.
func Classify(v any) Kind {
	if v == nil {
		return KindPrimitive
	}

	// Typed nils come first: a nil *Set, nil *Map, or nil pointer held in
	// a Ref implementation is the null primitive, not a container or
	// reference.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return KindPrimitive
	}

	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindPrimitive
	case *Set, Set:
		return KindSet
	case *Map, Map:
		return KindMap
	}

	if _, ok := v.(reflect.Type); ok {
		return KindType
	}
	if _, ok := v.(Ref); ok {
		return KindRef
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindDict
		}
		return KindInvalid
	case reflect.Struct:
		return KindInstance
	case reflect.Pointer:
		if rv.Elem().Kind() == reflect.Struct {
			return KindInstance
		}
		return KindInvalid
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Named types with a primitive underlying kind.
		return KindPrimitive
	default:
		return KindInvalid
	}
}
