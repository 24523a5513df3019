// internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrTombstoned  = errors.New("entry already tombstoned")
	ErrDuplicateID = errors.New("duplicate id")
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewFromDB wraps an already opened database without touching its schema.
func NewFromDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// dsn adds a busy timeout so concurrent writers wait instead of failing.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS pregnancies (
        id TEXT PRIMARY KEY,
        start_date TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS nutrition_log_entries (
        id TEXT PRIMARY KEY,
        pregnancy_id TEXT NOT NULL,
        logged_at INTEGER NOT NULL,
        profile TEXT NOT NULL,
        quantity REAL NOT NULL,
        unit TEXT NOT NULL,
        meal_type TEXT NOT NULL,
        replaces_id TEXT,
        tombstoned_at INTEGER,
        created_at INTEGER NOT NULL,
        FOREIGN KEY (pregnancy_id) REFERENCES pregnancies(id)
    );

    CREATE TABLE IF NOT EXISTS goal_overrides (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        pregnancy_id TEXT NOT NULL,
        nutrient TEXT NOT NULL,
        trimester INTEGER NOT NULL,
        amount REAL NOT NULL,
        unit TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        FOREIGN KEY (pregnancy_id) REFERENCES pregnancies(id)
    );

    CREATE TABLE IF NOT EXISTS resolution_cache (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        expires_at INTEGER,
        updated_at INTEGER NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_entries_pregnancy_logged ON nutrition_log_entries(pregnancy_id, logged_at);
    CREATE INDEX IF NOT EXISTS idx_entries_replaces ON nutrition_log_entries(replaces_id);
    CREATE INDEX IF NOT EXISTS idx_overrides_pregnancy ON goal_overrides(pregnancy_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
