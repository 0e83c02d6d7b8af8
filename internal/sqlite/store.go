// Package sqlite implements the persistent object store: SQLite as the
// query engine, an objects.jsonl file as the source of truth. The
// database is rebuilt from the JSONL file on attach and every write is
// persisted back atomically.
package sqlite

import (
	"bytes"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store lifecycle and lookup errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrNotFound        = errors.New("object not found")
	ErrInvalidData     = errors.New("data is not valid JSON")
)

// Config describes where the store keeps its files.
type Config struct {
	// DataDir holds objects.jsonl and the rebuilt objects.db.
	// Empty means the current directory.
	DataDir string
}

// Record is one stored object row.
type Record struct {
	ID        int64  // store-assigned, monotonically increasing
	Rev       string // UUID v7, regenerated on every write
	Data      string // encoded JSONx text
	CreatedAt string // RFC 3339
	UpdatedAt string // RFC 3339
}

// Store is the SQLite-backed object store. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	attached bool
	dataDir  string
	db       *sql.DB
}

// NewStore returns a detached store; call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach creates the data directory if needed, rebuilds the database
// from objects.jsonl, and makes the store operational.
// Returns ErrAlreadyAttached when called twice.
func (s *Store) Attach(config Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The database is derived state; start from a clean file.
	dbPath := filepath.Join(dataDir, "objects.db")
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	jsonlPath := filepath.Join(dataDir, "objects.jsonl")
	if _, err := os.Stat(jsonlPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(jsonlPath, nil, 0o644); err != nil {
			db.Close()
			return fmt.Errorf("init objects.jsonl: %w", err)
		}
	}
	if err := loadObjectsJSONL(db, jsonlPath); err != nil {
		db.Close()
		return fmt.Errorf("load objects.jsonl: %w", err)
	}

	s.db = db
	s.dataDir = dataDir
	s.attached = true
	return nil
}

// Detach closes the database. Idempotent; operations after Detach fail
// with ErrStoreDetached.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.db = nil
	s.attached = false
	return nil
}

// Insert stores a new object and returns its assigned id.
func (s *Store) Insert(data string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return 0, ErrStoreDetached
	}
	data, err := compactJSON(data)
	if err != nil {
		return 0, err
	}
	now := timestamp()
	res, err := s.db.Exec(
		"INSERT INTO objects (rev, data, created_at, updated_at) VALUES (?, ?, ?, ?)",
		newRev(), data, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert object: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert object: %w", err)
	}
	if err := s.persistLocked(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the encoded data of the object with the given id.
func (s *Store) Get(id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return "", ErrStoreDetached
	}
	var data string
	err := s.db.QueryRow("SELECT data FROM objects WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("get object %d: %w", id, err)
	}
	return data, nil
}

// GetRecord returns the full row for the object with the given id.
func (s *Store) GetRecord(id int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return Record{}, ErrStoreDetached
	}
	var rec Record
	err := s.db.QueryRow(
		"SELECT id, rev, data, created_at, updated_at FROM objects WHERE id = ?", id,
	).Scan(&rec.ID, &rec.Rev, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get object %d: %w", id, err)
	}
	return rec, nil
}

// Update replaces the data of an existing object, rolling its revision.
func (s *Store) Update(id int64, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return ErrStoreDetached
	}
	data, err := compactJSON(data)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE objects SET rev = ?, data = ?, updated_at = ? WHERE id = ?",
		newRev(), data, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update object %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update object %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.persistLocked()
}

// Delete removes the object with the given id. Ids are never reused.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return ErrStoreDetached
	}
	res, err := s.db.Exec("DELETE FROM objects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete object %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete object %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.persistLocked()
}

// ListRecords returns all rows ordered by id.
func (s *Store) ListRecords() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil, ErrStoreDetached
	}
	return s.listLocked()
}

func (s *Store) listLocked() ([]Record, error) {
	rows, err := s.db.Query("SELECT id, rev, data, created_at, updated_at FROM objects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Rev, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return records, nil
}

// persistLocked writes the full table back to objects.jsonl.
// The caller must hold s.mu.
func (s *Store) persistLocked() error {
	records, err := s.listLocked()
	if err != nil {
		return err
	}
	path := filepath.Join(s.dataDir, "objects.jsonl")
	if err := writeObjectsJSONL(path, records); err != nil {
		return fmt.Errorf("persist objects.jsonl: %w", err)
	}
	return nil
}

// compactJSON normalizes data before it is stored. Writing the JSONL
// file compacts the raw text, so compacting up front keeps Get returning
// the same bytes before and after an attach cycle.
func compactJSON(data string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return buf.String(), nil
}

// newRev generates a revision id, UUID v7 so revisions sort by time.
func newRev() string {
	rev, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return rev.String()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
