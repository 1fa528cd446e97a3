package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	name       TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	records    TEXT NOT NULL DEFAULT '[]'
);
`

// SQLiteTier is the durable (cross-session) persistence tier, one row
// per collection.
type SQLiteTier struct {
	conn *sql.DB
}

// OpenSQLiteTier opens (or creates) the database and applies the
// schema.
func OpenSQLiteTier(dsn string) (*SQLiteTier, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &SQLiteTier{conn: conn}, nil
}

// Close closes the underlying database connection.
func (t *SQLiteTier) Close() error {
	return t.conn.Close()
}

// Name implements Tier.
func (t *SQLiteTier) Name() string { return "sqlite" }

// Load implements Tier. Rows whose record list does not decode are
// skipped.
func (t *SQLiteTier) Load() (Snapshot, error) {
	rows, err := t.conn.Query(`SELECT name, fetched_at, records FROM cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("cache: load entries: %w: %v", apperr.ErrPersistence, err)
	}
	defer rows.Close()

	out := Snapshot{}
	for rows.Next() {
		var (
			name      string
			fetchedAt int64
			raw       string
		)
		if err := rows.Scan(&name, &fetchedAt, &raw); err != nil {
			return nil, fmt.Errorf("cache: scan entry: %w: %v", apperr.ErrPersistence, err)
		}
		var records models.Collection
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			continue
		}
		entry := models.CacheEntry{FetchedAt: fetchedAt, Records: records}
		if entry.Valid() {
			out[name] = entry
		}
	}
	return out, rows.Err()
}

// Store implements Tier: the table is replaced wholesale within one
// transaction.
func (t *SQLiteTier) Store(s Snapshot) error {
	tx, err := t.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w: %v", apperr.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("cache: clear entries: %w: %v", apperr.ErrPersistence, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO cache_entries (name, fetched_at, records) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w: %v", apperr.ErrPersistence, err)
	}
	defer stmt.Close()

	for name, entry := range s {
		raw, err := json.Marshal(entry.Records)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(name, entry.FetchedAt, string(raw)); err != nil {
			return fmt.Errorf("cache: insert %s: %w: %v", name, apperr.ErrPersistence, err)
		}
	}

	return tx.Commit()
}
