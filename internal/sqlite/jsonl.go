// JSONL persistence for the object store. One object per line; the file
// is the source of truth and survives database rebuilds.
package sqlite

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// objectJSON mirrors one line of objects.jsonl. Data is kept raw so the
// encoded object state stays readable in the file.
type objectJSON struct {
	ID        int64           `json:"id"`
	Rev       string          `json:"rev"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// maxLineBytes bounds a single JSONL line (one encoded object graph).
const maxLineBytes = 16 << 20

// loadObjectsJSONL reads objects.jsonl and inserts each record into the
// freshly created objects table, preserving ids. Loading is
// transactional; malformed lines are skipped so one bad record does not
// take the store down.
func loadObjectsJSONL(db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO objects (id, rev, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec objectJSON
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.ID <= 0 || len(rec.Data) == 0 {
			continue
		}
		if _, err := stmt.Exec(rec.ID, rec.Rev, string(rec.Data), rec.CreatedAt, rec.UpdatedAt); err != nil {
			// Duplicate ids and other constraint violations are skipped,
			// same as malformed lines.
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load transaction: %w", err)
	}
	return nil
}

// writeObjectsJSONL atomically replaces the JSONL file with the given
// records: temp file, fsync, rename.
func writeObjectsJSONL(path string, records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".objects-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := json.Marshal(objectJSON{
			ID:        rec.ID,
			Rev:       rec.Rev,
			Data:      json.RawMessage(rec.Data),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
		if err != nil {
			return fail("marshal record", err)
		}
		if _, err := w.Write(line); err != nil {
			return fail("write record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("write newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flush", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
