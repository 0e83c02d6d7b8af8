// Package integration exercises the full stack end to end: the codec,
// the classpath registry, the object cache, and the SQLite-backed store
// working together over a real data directory.
package integration

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/jsonx/internal/sqlite"
	"github.com/mesh-intelligence/jsonx/pkg/classpath"
	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
	"github.com/mesh-intelligence/jsonx/pkg/registry"
	"github.com/mesh-intelligence/jsonx/pkg/webobj"
)

// newEnv attaches a store to dir and wires a cache over it, mirroring the
// CLI boot sequence. Detach is registered as cleanup and is idempotent,
// so tests may detach early to simulate a restart.
func newEnv(t *testing.T, dir string) (*registry.Cache, *sqlite.Store) {
	t.Helper()

	store := sqlite.NewStore()
	require.NoError(t, store.Attach(sqlite.Config{DataDir: dir}))
	t.Cleanup(func() { _ = store.Detach() })

	b := classpath.NewBuilder()
	require.NoError(t, jsonx.RegisterBuiltins(b))
	require.NoError(t, b.Register("webobj:Object", reflect.TypeOf(webobj.Object{})))

	return registry.New(b.Build(), store), store
}

// mustSave saves a fresh object with the given data and returns its id.
func mustSave(t *testing.T, cache *registry.Cache, data map[string]any) int64 {
	t.Helper()
	obj := webobj.New()
	obj.SetData(data)
	id, err := cache.Save(obj)
	require.NoError(t, err)
	return id
}
