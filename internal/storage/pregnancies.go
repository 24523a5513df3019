// internal/storage/pregnancies.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mcp-prenatal-log/internal/models"
)

const dateLayout = "2006-01-02"

func (s *SQLiteStorage) CreatePregnancy(ctx context.Context, p *models.Pregnancy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pregnancies (id, start_date, created_at) VALUES (?, ?, ?)`,
		p.ID, p.StartDate.Format(dateLayout), toMillis(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: pregnancy %s", ErrDuplicateID, p.ID)
		}
		return fmt.Errorf("failed to insert pregnancy: %w", err)
	}
	return nil
}

// GetPregnancy returns the pregnancy with its start date as a UTC midnight.
func (s *SQLiteStorage) GetPregnancy(ctx context.Context, id string) (*models.Pregnancy, error) {
	var startDate string
	var createdAt int64
	p := &models.Pregnancy{ID: id}

	err := s.db.QueryRowContext(ctx,
		`SELECT start_date, created_at FROM pregnancies WHERE id = ?`, id).
		Scan(&startDate, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: pregnancy %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load pregnancy: %w", err)
	}

	if p.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (s *SQLiteStorage) AddGoalOverride(ctx context.Context, o *models.GoalOverride) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO goal_overrides (pregnancy_id, nutrient, trimester, amount, unit, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, o.PregnancyID, string(o.Nutrient), o.Trimester, o.Amount, o.Unit, toMillis(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert goal override: %w", err)
	}
	return nil
}

// ListGoalOverrides returns every override row of a pregnancy, oldest first.
func (s *SQLiteStorage) ListGoalOverrides(ctx context.Context, pregnancyID string) ([]models.GoalOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT nutrient, trimester, amount, unit, created_at
        FROM goal_overrides
        WHERE pregnancy_id = ?
        ORDER BY created_at, id
    `, pregnancyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal overrides: %w", err)
	}
	defer rows.Close()

	var out []models.GoalOverride
	for rows.Next() {
		o := models.GoalOverride{PregnancyID: pregnancyID}
		var nutrient string
		var createdAt int64
		if err := rows.Scan(&nutrient, &o.Trimester, &o.Amount, &o.Unit, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal override: %w", err)
		}
		o.Nutrient = models.Nutrient(nutrient)
		o.CreatedAt = fromMillis(createdAt)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goal overrides: %w", err)
	}
	return out, nil
}
