package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gt11799/sync-google-calendar/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the durable per-account state: a string key/value namespace
// holding the event mappings, and a log of past run reports.
type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sync_records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			calendars_scanned INTEGER DEFAULT 0,
			events_seen INTEGER DEFAULT 0,
			added INTEGER DEFAULT 0,
			updated INTEGER DEFAULT 0,
			deleted INTEGER DEFAULT 0,
			skipped INTEGER DEFAULT 0,
			errors TEXT DEFAULT '[]',
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Key/value records ===

// Get returns the stored value for key. A missing key is reported through
// the boolean, not as an error.
func (s *Storage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Storage) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_records (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Storage) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM sync_records WHERE key = ?`, key)
	return err
}

// List returns all stored pairs whose key starts with prefix.
func (s *Storage) List(prefix string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT key, value FROM sync_records WHERE key LIKE ? ESCAPE '\'`,
		likePrefix(prefix)+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// likePrefix escapes LIKE metacharacters so the prefix matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}

// === Run log ===

func (s *Storage) SaveRun(r *domain.RunReport) error {
	errs, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (started_at, finished_at, calendars_scanned, events_seen, added, updated, deleted, skipped, errors, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.FinishedAt, r.CalendarsScanned, r.EventsSeen,
		r.Added, r.Updated, r.Deleted, r.Skipped, string(errs), r.Status,
	)
	return err
}

// LastRun returns the most recent run report, or nil when none is recorded.
func (s *Storage) LastRun() (*domain.RunReport, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListRuns returns up to limit run reports, most recent first.
func (s *Storage) ListRuns(limit int) ([]*domain.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT started_at, finished_at, calendars_scanned, events_seen, added, updated, deleted, skipped, errors, status
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunReport
	for rows.Next() {
		r := &domain.RunReport{}
		var errs string
		if err := rows.Scan(&r.StartedAt, &r.FinishedAt, &r.CalendarsScanned, &r.EventsSeen,
			&r.Added, &r.Updated, &r.Deleted, &r.Skipped, &errs, &r.Status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(errs), &r.Errors); err != nil {
			r.Errors = []string{fmt.Sprintf("unreadable error log: %v", err)}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
