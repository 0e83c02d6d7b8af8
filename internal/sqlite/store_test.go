package sqlite

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attachedStore returns a store attached to a fresh temp directory.
func attachedStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewStore()
	require.NoError(t, s.Attach(Config{DataDir: dir}))
	t.Cleanup(func() { _ = s.Detach() })
	return s, dir
}

func TestLifecycle(t *testing.T) {
	t.Run("attach creates store files", func(t *testing.T) {
		_, dir := attachedStore(t)
		assert.FileExists(t, filepath.Join(dir, "objects.db"))
		assert.FileExists(t, filepath.Join(dir, "objects.jsonl"))
	})

	t.Run("double attach fails", func(t *testing.T) {
		s, dir := attachedStore(t)
		assert.ErrorIs(t, s.Attach(Config{DataDir: dir}), ErrAlreadyAttached)
	})

	t.Run("operations require attach", func(t *testing.T) {
		s := NewStore()
		_, err := s.Insert(`{}`)
		assert.ErrorIs(t, err, ErrStoreDetached)
		_, err = s.Get(1)
		assert.ErrorIs(t, err, ErrStoreDetached)
		assert.ErrorIs(t, s.Update(1, `{}`), ErrStoreDetached)
		assert.ErrorIs(t, s.Delete(1), ErrStoreDetached)
		_, err = s.ListRecords()
		assert.ErrorIs(t, err, ErrStoreDetached)
	})

	t.Run("detach is idempotent", func(t *testing.T) {
		s, _ := attachedStore(t)
		require.NoError(t, s.Detach())
		assert.NoError(t, s.Detach())
		_, err := s.Get(1)
		assert.ErrorIs(t, err, ErrStoreDetached)
	})
}

func TestCRUD(t *testing.T) {
	s, _ := attachedStore(t)

	id1, err := s.Insert(`{"name": "alpha"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	id2, err := s.Insert(`{"name": "beta"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	t.Run("get returns compacted text", func(t *testing.T) {
		data, err := s.Get(id1)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"alpha"}`, data)

		_, err = s.Get(99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		_, err := s.Insert(`{not json`)
		assert.ErrorIs(t, err, ErrInvalidData)
		assert.ErrorIs(t, s.Update(id1, `{not json`), ErrInvalidData)
	})

	t.Run("get record", func(t *testing.T) {
		rec, err := s.GetRecord(id1)
		require.NoError(t, err)
		assert.Equal(t, id1, rec.ID)
		assert.NotEmpty(t, rec.Rev)
		assert.NotEmpty(t, rec.CreatedAt)
		assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

		_, err = s.GetRecord(99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update rolls the revision", func(t *testing.T) {
		before, err := s.GetRecord(id1)
		require.NoError(t, err)

		require.NoError(t, s.Update(id1, `{"name": "gamma"}`))
		after, err := s.GetRecord(id1)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"gamma"}`, after.Data)
		assert.NotEqual(t, before.Rev, after.Rev)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)

		assert.ErrorIs(t, s.Update(99, `{}`), ErrNotFound)
	})

	t.Run("list orders by id", func(t *testing.T) {
		records, err := s.ListRecords()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(1), records[0].ID)
		assert.Equal(t, int64(2), records[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(id2))
		_, err := s.Get(id2)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(id2), ErrNotFound)
	})
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s := NewStore()
	require.NoError(t, s.Attach(Config{DataDir: dir}))
	id1, err := s.Insert(`{"name": "alpha"}`)
	require.NoError(t, err)
	id2, err := s.Insert(`{"name": "beta", "tags": [1, 2]}`)
	require.NoError(t, err)

	// Snapshot what Get returns while the first store is live; a reload
	// must hand back the identical bytes.
	before1, err := s.Get(id1)
	require.NoError(t, err)
	before2, err := s.Get(id2)
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	// A fresh store over the same directory rebuilds from objects.jsonl.
	s2 := NewStore()
	require.NoError(t, s2.Attach(Config{DataDir: dir}))
	defer s2.Detach()

	data, err := s2.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, before1, data)
	assert.Equal(t, `{"name":"alpha"}`, data)
	data, err = s2.Get(id2)
	require.NoError(t, err)
	assert.Equal(t, before2, data)
	assert.Equal(t, `{"name":"beta","tags":[1,2]}`, data)

	t.Run("ids keep increasing after reload", func(t *testing.T) {
		id3, err := s2.Insert(`{"name": "gamma"}`)
		require.NoError(t, err)
		assert.Equal(t, int64(3), id3)
	})
}

func TestJSONLFormat(t *testing.T) {
	s, dir := attachedStore(t)

	_, err := s.Insert(`{"name": "alpha", "owner": {"@": 2}}`)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "objects.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var rec objectJSON
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.NotEmpty(t, rec.Rev)
	// Data embeds as raw JSON, not an escaped string.
	assert.JSONEq(t, `{"name": "alpha", "owner": {"@": 2}}`, string(rec.Data))
	assert.False(t, scanner.Scan())
}

func TestLoadSkipsBadLines(t *testing.T) {
	dir := t.TempDir()

	s := NewStore()
	require.NoError(t, s.Attach(Config{DataDir: dir}))
	_, err := s.Insert(`{"name": "alpha"}`)
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	// Corrupt the file: garbage, a duplicate id, and an id-less record.
	path := filepath.Join(dir, "objects.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	lines := []string{
		`not json at all`,
		`{"id": 1, "rev": "dup", "data": {"name": "impostor"}, "created_at": "x", "updated_at": "x"}`,
		`{"rev": "no-id", "data": {}}`,
		`{"id": 5, "rev": "ok", "data": {"name": "echo"}, "created_at": "x", "updated_at": "x"}`,
	}
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s2 := NewStore()
	require.NoError(t, s2.Attach(Config{DataDir: dir}))
	defer s2.Detach()

	records, err := s2.ListRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.JSONEq(t, `{"name": "alpha"}`, records[0].Data)
	assert.Equal(t, int64(5), records[1].ID)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s, dir := attachedStore(t)

	id, err := s.Insert(`{"a": 1}`)
	require.NoError(t, err)
	require.NoError(t, s.Update(id, `{"a": 2}`))
	require.NoError(t, s.Delete(id))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".objects-"), "leftover temp file %s", e.Name())
	}
}
