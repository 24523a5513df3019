// internal/goals/goals.go
package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/storage"
	"mcp-prenatal-log/internal/units"
)

var (
	ErrDateBeforePregnancyStart = errors.New("date is before pregnancy start")
	ErrPregnancyNotFound        = errors.New("pregnancy not found")
	ErrInvalidGoal              = errors.New("invalid goal override")
)

// Store is the part of the log store the goal resolver reads and writes.
type Store interface {
	GetPregnancy(ctx context.Context, id string) (*models.Pregnancy, error)
	ListGoalOverrides(ctx context.Context, pregnancyID string) ([]models.GoalOverride, error)
	AddGoalOverride(ctx context.Context, o *models.GoalOverride) error
}

// Trimester returns the gestational week (1-based) and trimester of date for
// a pregnancy that started on start. Both are compared as calendar dates.
func Trimester(start, date time.Time) (week, trimester int, err error) {
	days := daysBetween(start, date)
	if days < 0 {
		return 0, 0, fmt.Errorf("%w: %s < %s", ErrDateBeforePregnancyStart,
			date.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	week = days/7 + 1
	switch {
	case week <= 13:
		trimester = 1
	case week <= 27:
		trimester = 2
	default:
		trimester = 3
	}
	return week, trimester, nil
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

type Resolver struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Schedule holds everything needed to answer goal lookups for one
// pregnancy without going back to the store.
type Schedule struct {
	Pregnancy models.Pregnancy
	overrides []models.GoalOverride
}

// Load reads a pregnancy and its override history.
func (r *Resolver) Load(ctx context.Context, pregnancyID string) (*Schedule, error) {
	p, err := r.store.GetPregnancy(ctx, pregnancyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPregnancyNotFound, pregnancyID)
		}
		return nil, err
	}
	overrides, err := r.store.ListGoalOverrides(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	return &Schedule{Pregnancy: *p, overrides: overrides}, nil
}

func (r *Resolver) GoalsFor(ctx context.Context, pregnancyID string, date time.Time) (models.NutrientGoalTable, error) {
	s, err := r.Load(ctx, pregnancyID)
	if err != nil {
		return models.NutrientGoalTable{}, err
	}
	table, _, err := s.For(date)
	return table, err
}

// For returns the goal table that applies on date and the gestational week.
func (s *Schedule) For(date time.Time) (models.NutrientGoalTable, int, error) {
	week, trimester, err := Trimester(s.Pregnancy.StartDate, date)
	if err != nil {
		return models.NutrientGoalTable{}, 0, err
	}
	return s.Table(trimester), week, nil
}

// Table merges the overrides onto the defaults of a trimester. For each
// nutrient a trimester-specific override beats one that applies to every
// trimester, and the newest row of the same kind wins.
func (s *Schedule) Table(trimester int) models.NutrientGoalTable {
	table := DefaultTable(trimester)

	chosen := make(map[models.Nutrient]models.GoalOverride)
	for _, o := range s.overrides {
		if o.Trimester != 0 && o.Trimester != trimester {
			continue
		}
		prev, seen := chosen[o.Nutrient]
		if seen && prev.Trimester != 0 && o.Trimester == 0 {
			continue
		}
		chosen[o.Nutrient] = o
	}

	for n, o := range chosen {
		table.Goals[n] = models.NutrientGoal{
			DailyGoalAmount: o.Amount,
			Unit:            n.CanonicalUnit(),
			Source:          models.OverrideGoal,
		}
	}
	return table
}

// SetOverride validates and stores a goal override. The amount is stored in
// the nutrient's canonical unit.
func (r *Resolver) SetOverride(ctx context.Context, pregnancyID string, nutrient models.Nutrient, trimester int, amount float64, unit string) (*models.GoalOverride, error) {
	if !nutrient.Valid() {
		return nil, fmt.Errorf("%w: unknown nutrient %q", ErrInvalidGoal, nutrient)
	}
	if trimester < 0 || trimester > 3 {
		return nil, fmt.Errorf("%w: trimester must be 0-3, got %d", ErrInvalidGoal, trimester)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidGoal)
	}
	if unit == "" {
		unit = nutrient.CanonicalUnit()
	}
	canonical, err := units.ConvertNutrient(string(nutrient), amount, unit, nutrient.CanonicalUnit())
	if err != nil {
		return nil, err
	}

	if _, err := r.store.GetPregnancy(ctx, pregnancyID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPregnancyNotFound, pregnancyID)
		}
		return nil, err
	}

	o := &models.GoalOverride{
		PregnancyID: pregnancyID,
		Nutrient:    nutrient,
		Trimester:   trimester,
		Amount:      canonical,
		Unit:        nutrient.CanonicalUnit(),
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.AddGoalOverride(ctx, o); err != nil {
		return nil, err
	}
	r.logger.Info("Goal override stored",
		zap.String("pregnancy_id", pregnancyID),
		zap.String("nutrient", string(nutrient)),
		zap.Int("trimester", trimester),
		zap.Float64("amount", canonical),
	)
	return o, nil
}
