// Boot sequence: classpath registration, store attach, cache wiring.
// Registration fully completes before any command encodes or decodes.
package main

import (
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/jsonx/internal/sqlite"
	"github.com/mesh-intelligence/jsonx/pkg/classpath"
	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
	"github.com/mesh-intelligence/jsonx/pkg/registry"
	"github.com/mesh-intelligence/jsonx/pkg/webobj"
)

// buildClasspath assembles the frozen classpath registry: codec built-ins
// plus the object handle class.
func buildClasspath() (*classpath.Registry, error) {
	b := classpath.NewBuilder()
	if err := jsonx.RegisterBuiltins(b); err != nil {
		return nil, fmt.Errorf("register builtins: %w", err)
	}
	if err := b.Register("webobj:Object", reflect.TypeOf(webobj.Object{})); err != nil {
		return nil, fmt.Errorf("register webobj: %w", err)
	}
	return b.Build(), nil
}

// withCache attaches the store, runs fn with an object cache over it, and
// detaches when done.
func withCache(fn func(cache *registry.Cache) error) error {
	classes, err := buildClasspath()
	if err != nil {
		return err
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	store := sqlite.NewStore()
	if err := store.Attach(sqlite.Config{DataDir: dataDir}); err != nil {
		return fmt.Errorf("attach store: %w", err)
	}
	defer store.Detach()

	return fn(registry.New(classes, store))
}

// withStore is withCache for commands that only need raw records.
func withStore(fn func(store *sqlite.Store) error) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	store := sqlite.NewStore()
	if err := store.Attach(sqlite.Config{DataDir: dataDir}); err != nil {
		return fmt.Errorf("attach store: %w", err)
	}
	defer store.Detach()

	return fn(store)
}

// stubResolver resolves references without touching any store; used by
// the decode command, which only inspects documents.
type stubResolver struct{}

func (stubResolver) ResolveEntity(id int64) (jsonx.Ref, error) {
	return webobj.Stub(id), nil
}
