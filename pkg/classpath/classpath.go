// Package classpath maintains the bidirectional mapping between Go types
// and the canonical string paths ("module:Symbol", or ":Symbol" for
// built-ins) that identify them on the wire.
//
// Population is two-phase: a Builder collects registrations during boot,
// then Build freezes them into an immutable Registry that is handed to the
// codec by reference. The Registry is safe for concurrent reads and never
// mutated after construction.
package classpath

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Registration errors.
var (
	ErrInvalidPath    = errors.New("invalid classpath")
	ErrDuplicatePath  = errors.New("classpath already registered")
	ErrDuplicateClass = errors.New("class already registered under another path")
)

// Lookup errors.
var (
	ErrUnknownPath  = errors.New("unknown classpath")
	ErrUnknownClass = errors.New("class has no registered classpath")
)

// Builder collects (path, object) registrations before the registry is
// frozen. Builders are not safe for concurrent use; boot code registers
// sequentially and calls Build before serving anything.
type Builder struct {
	byPath map[string]any
	byType map[reflect.Type]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		byPath: make(map[string]any),
		byType: make(map[reflect.Type]string),
	}
}

// Register records obj under path. Paths take the form "module:Symbol";
// a leading colon (":Symbol") marks a built-in with no module part.
//
// When obj names a class (a reflect.Type, or a struct value standing in
// for its type), the reverse mapping from type to path is recorded as
// well, so instances of the type can be tagged on encode. Other values
// register forward-only and are reachable through ResolveClass.
//
// Registration is strict: a taken path fails with ErrDuplicatePath and a
// class that already has a different path fails with ErrDuplicateClass.
// Re-registering the exact same (path, class) pair is a no-op.
func (b *Builder) Register(path string, obj any) error {
	sep := strings.IndexByte(path, ':')
	if sep < 0 || sep == len(path)-1 {
		return fmt.Errorf("%w: %q (want \"module:Symbol\" or \":Symbol\")", ErrInvalidPath, path)
	}
	if obj == nil {
		return fmt.Errorf("%w: nil object for %q", ErrInvalidPath, path)
	}

	t, isClass := classType(obj)

	if prev, taken := b.byPath[path]; taken {
		if isClass {
			if pt, ok := classType(prev); ok && pt == t {
				return nil // idempotent re-registration
			}
		}
		return fmt.Errorf("%w: %q", ErrDuplicatePath, path)
	}
	if isClass {
		if prevPath, found := b.byType[t]; found && prevPath != path {
			return fmt.Errorf("%w: %s is %q", ErrDuplicateClass, t, prevPath)
		}
	}

	if isClass {
		b.byPath[path] = t
		b.byType[t] = path
	} else {
		b.byPath[path] = obj
	}
	return nil
}

// RegisterModule harvests class-valued entries from exports and registers
// each under "module:name". Non-class entries are skipped, so a module's
// full export table can be passed as-is. Names are processed in sorted
// order to keep registration failures deterministic.
func (b *Builder) RegisterModule(module string, exports map[string]any) error {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		obj := exports[name]
		if obj == nil {
			continue
		}
		if _, ok := classType(obj); !ok {
			continue
		}
		if err := b.Register(module+":"+name, obj); err != nil {
			return fmt.Errorf("module %q: %w", module, err)
		}
	}
	return nil
}

// Build freezes the collected registrations into an immutable Registry.
// The Builder remains usable; later registrations do not affect registries
// built earlier.
func (b *Builder) Build() *Registry {
	r := &Registry{
		byPath: make(map[string]any, len(b.byPath)),
		byType: make(map[reflect.Type]string, len(b.byType)),
	}
	for path, obj := range b.byPath {
		r.byPath[path] = obj
	}
	for t, path := range b.byType {
		r.byType[t] = path
	}
	return r
}

// Registry is the frozen two-way path/class mapping consumed by the codec.
// All lookups are read-only, so no locking is needed after Build.
type Registry struct {
	byPath map[string]any
	byType map[reflect.Type]string
}

// ResolveClass returns the object registered under path.
// Class registrations come back as a reflect.Type.
func (r *Registry) ResolveClass(path string) (any, error) {
	obj, ok := r.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	return obj, nil
}

// ResolvePath returns the canonical path registered for t. Pointer types
// resolve through their element type, so *T and T share one path.
func (r *Registry) ResolvePath(t reflect.Type) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: nil type", ErrUnknownClass)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	path, ok := r.byType[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownClass, t)
	}
	return path, nil
}

// Paths returns every registered path in sorted order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.byPath))
	for path := range r.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	return len(r.byPath)
}

// classType normalizes obj to the type it registers a class for.
// Accepts a reflect.Type directly, or a struct (or pointer-to-struct)
// value standing in for its own type. Returns false for anything that
// cannot anchor a reverse mapping.
func classType(obj any) (reflect.Type, bool) {
	t, ok := obj.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(obj)
	}
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct && t.Name() != "" {
		return t, true
	}
	return nil, false
}
