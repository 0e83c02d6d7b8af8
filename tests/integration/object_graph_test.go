// End-to-end tests for saving, reloading, and deleting object graphs.
package integration

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/jsonx/internal/sqlite"
	"github.com/mesh-intelligence/jsonx/pkg/jsonx"
	"github.com/mesh-intelligence/jsonx/pkg/webobj"
)

func TestObjectGraphSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	cache, store := newEnv(t, dir)
	ownerID := mustSave(t, cache, map[string]any{"name": "alice"})

	owner, err := cache.Load(ownerID)
	require.NoError(t, err)
	petID := mustSave(t, cache, map[string]any{"name": "rex", "owner": owner})
	require.NoError(t, store.Detach())

	// A fresh process over the same directory sees the same graph.
	cache2, _ := newEnv(t, dir)
	pet, err := cache2.Load(petID)
	require.NoError(t, err)

	name, err := pet.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "rex", name)

	ref, err := pet.Get("owner")
	require.NoError(t, err)
	stub, ok := ref.(*webobj.Object)
	require.True(t, ok)
	assert.Equal(t, ownerID, stub.ID())
	assert.False(t, stub.Loaded(), "references materialize lazily")

	loaded, err := cache2.Load(ownerID)
	require.NoError(t, err)
	assert.Same(t, stub, loaded, "one handle per id")
	ownerName, err := stub.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", ownerName)
}

func TestRichValuesSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	when := time.Date(2026, 8, 31, 12, 0, 0, 123456789, time.UTC)

	attrs := jsonx.NewMap()
	attrs.Set("color", "brown")
	attrs.Set("size", "large")

	cache, store := newEnv(t, dir)
	id := mustSave(t, cache, map[string]any{
		"tags":   jsonx.NewSet("good", "boy"),
		"attrs":  attrs,
		"since":  when,
		"coords": []any{1.5, 2.5},
		"meta":   map[string]any{"nested": true},
	})
	require.NoError(t, store.Detach())

	cache2, _ := newEnv(t, dir)
	obj, err := cache2.Load(id)
	require.NoError(t, err)

	tags, err := obj.Get("tags")
	require.NoError(t, err)
	set, ok := tags.(*jsonx.Set)
	require.True(t, ok)
	assert.Equal(t, []any{"good", "boy"}, set.Values())

	rawAttrs, err := obj.Get("attrs")
	require.NoError(t, err)
	m, ok := rawAttrs.(*jsonx.Map)
	require.True(t, ok)
	color, _ := m.Get("color")
	assert.Equal(t, "brown", color)

	since, err := obj.Get("since")
	require.NoError(t, err)
	ts, ok := since.(time.Time)
	require.True(t, ok)
	assert.True(t, ts.Equal(when))

	coords, err := obj.Get("coords")
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, 2.5}, coords)

	meta, err := obj.Get("meta")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"nested": true}, meta)
}

func TestReservedKeyDataSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	cache, store := newEnv(t, dir)
	id := mustSave(t, cache, map[string]any{
		"note": map[string]any{"@": "not a tag", "text": "hi"},
	})
	require.NoError(t, store.Detach())

	cache2, _ := newEnv(t, dir)
	obj, err := cache2.Load(id)
	require.NoError(t, err)

	note, err := obj.Get("note")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"@": "not a tag", "text": "hi"}, note)
}

func TestStoredTextIsReadableJSONx(t *testing.T) {
	dir := t.TempDir()

	cache, store := newEnv(t, dir)
	ownerID := mustSave(t, cache, map[string]any{"name": "alice"})
	owner, err := cache.Load(ownerID)
	require.NoError(t, err)
	mustSave(t, cache, map[string]any{"name": "rex", "owner": owner})

	data, err := store.Get(2)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"name": "rex", "owner": {"@": %d}}`, ownerID), data)

	// The JSONL file carries the same text, one object per line.
	f, err := os.Open(filepath.Join(dir, "objects.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	assert.Equal(t, float64(1), lines[0]["id"])
	assert.Equal(t, float64(2), lines[1]["id"])
}

func TestDeleteLifecycle(t *testing.T) {
	dir := t.TempDir()

	cache, store := newEnv(t, dir)
	id := mustSave(t, cache, map[string]any{"name": "temp"})

	require.NoError(t, cache.Delete(id))
	_, err := store.Get(id)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	_, err = cache.Load(id)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestUpdateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cache, store := newEnv(t, dir)
	id := mustSave(t, cache, map[string]any{"name": "draft"})

	obj, err := cache.Load(id)
	require.NoError(t, err)
	require.NoError(t, obj.Set("name", "final"))
	require.NoError(t, obj.Set("done", true))
	id2, err := cache.Save(obj)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	require.NoError(t, store.Detach())

	cache2, _ := newEnv(t, dir)
	got, err := cache2.Load(id)
	require.NoError(t, err)
	name, err := got.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "final", name)
	done, err := got.Get("done")
	require.NoError(t, err)
	assert.Equal(t, true, done)
}
