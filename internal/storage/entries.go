// internal/storage/entries.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mcp-prenatal-log/internal/models"
)

const entryColumns = `id, pregnancy_id, logged_at, profile, quantity, unit, meal_type, replaces_id, tombstoned_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.NutritionLogEntry, error) {
	e := &models.NutritionLogEntry{}
	var loggedAt, createdAt int64
	var profileJSON, mealType string
	var replacesID sql.NullString
	var tombstonedAt sql.NullInt64

	if err := row.Scan(
		&e.ID, &e.PregnancyID, &loggedAt, &profileJSON, &e.Quantity, &e.Unit,
		&mealType, &replacesID, &tombstonedAt, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(profileJSON), &e.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile snapshot of entry %s: %w", e.ID, err)
	}
	e.Profile.Nutrients = e.Profile.Nutrients.Clone()
	e.LoggedAt = fromMillis(loggedAt)
	e.CreatedAt = fromMillis(createdAt)
	e.MealType = models.MealType(mealType)
	e.ReplacesID = replacesID.String
	if tombstonedAt.Valid {
		ts := fromMillis(tombstonedAt.Int64)
		e.TombstonedAt = &ts
	}
	return e, nil
}

func insertEntry(ctx context.Context, exec interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, e *models.NutritionLogEntry) error {
	profileJSON, err := json.Marshal(e.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile snapshot: %w", err)
	}
	var replacesID interface{}
	if e.ReplacesID != "" {
		replacesID = e.ReplacesID
	}

	query := `
        INSERT INTO nutrition_log_entries (id, pregnancy_id, logged_at, profile, quantity, unit, meal_type, replaces_id, tombstoned_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
    `
	_, err = exec.ExecContext(ctx, query,
		e.ID, e.PregnancyID, toMillis(e.LoggedAt), string(profileJSON),
		e.Quantity, e.Unit, string(e.MealType), replacesID, toMillis(e.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: entry %s", ErrDuplicateID, e.ID)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// AppendEntry stores a new log entry. Entries are never updated afterwards
// except for the tombstone marker.
func (s *SQLiteStorage) AppendEntry(ctx context.Context, e *models.NutritionLogEntry) error {
	return insertEntry(ctx, s.db, e)
}

func (s *SQLiteStorage) GetEntry(ctx context.Context, id string) (*models.NutritionLogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM nutrition_log_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return e, nil
}

// EntryQuery selects entries of one pregnancy with LoggedAt in [Start, End).
// A zero Start or End leaves that side open.
type EntryQuery struct {
	PregnancyID       string
	Start             time.Time
	End               time.Time
	IncludeTombstoned bool
	Limit             int
}

// ListEntries runs a single SELECT, so the result is a consistent snapshot
// even while other requests append.
func (s *SQLiteStorage) ListEntries(ctx context.Context, q EntryQuery) ([]*models.NutritionLogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM nutrition_log_entries WHERE pregnancy_id = ?`
	args := []interface{}{q.PregnancyID}

	if !q.Start.IsZero() {
		query += " AND logged_at >= ?"
		args = append(args, toMillis(q.Start))
	}
	if !q.End.IsZero() {
		query += " AND logged_at < ?"
		args = append(args, toMillis(q.End))
	}
	if !q.IncludeTombstoned {
		query += " AND tombstoned_at IS NULL"
	}
	query += " ORDER BY logged_at, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.NutritionLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// EntriesInRange implements the aggregation reader: live entries only.
func (s *SQLiteStorage) EntriesInRange(ctx context.Context, pregnancyID string, start, end time.Time) ([]*models.NutritionLogEntry, error) {
	return s.ListEntries(ctx, EntryQuery{PregnancyID: pregnancyID, Start: start, End: end})
}

// TombstoneEntry logically deletes an entry.
func (s *SQLiteStorage) TombstoneEntry(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tombstone(ctx, tx, id, at); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceEntry tombstones originalID and inserts replacement in one
// transaction.
func (s *SQLiteStorage) ReplaceEntry(ctx context.Context, originalID string, replacement *models.NutritionLogEntry, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tombstone(ctx, tx, originalID, at); err != nil {
		return err
	}
	replacement.ReplacesID = originalID
	if err := insertEntry(ctx, tx, replacement); err != nil {
		return err
	}
	return tx.Commit()
}

func tombstone(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE nutrition_log_entries SET tombstoned_at = ? WHERE id = ? AND tombstoned_at IS NULL`,
		toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to tombstone entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to tombstone entry: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nutrition_log_entries WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check entry: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", ErrTombstoned, id)
}
