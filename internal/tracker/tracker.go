// internal/tracker/tracker.go
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/aggregate"
	"mcp-prenatal-log/internal/goals"
	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/storage"
	"mcp-prenatal-log/internal/units"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEntryNotFound  = errors.New("log entry not found")
)

// Store is the log store as seen by the service.
type Store interface {
	CreatePregnancy(ctx context.Context, p *models.Pregnancy) error
	GetPregnancy(ctx context.Context, id string) (*models.Pregnancy, error)
	AppendEntry(ctx context.Context, e *models.NutritionLogEntry) error
	GetEntry(ctx context.Context, id string) (*models.NutritionLogEntry, error)
	ListEntries(ctx context.Context, q storage.EntryQuery) ([]*models.NutritionLogEntry, error)
	ReplaceEntry(ctx context.Context, originalID string, replacement *models.NutritionLogEntry, at time.Time) error
	TombstoneEntry(ctx context.Context, id string, at time.Time) error
}

type FoodResolver interface {
	Resolve(ctx context.Context, ref models.FoodReference) (models.FoodProfile, error)
}

type Options struct {
	// Location decides where calendar days start and end.
	Location    *time.Location
	ProgressCap float64
}

type Service struct {
	store    Store
	resolver FoodResolver
	goals    *goals.Resolver
	engine   *aggregate.Engine
	loc      *time.Location
	cap      float64
	logger   *zap.Logger
	now      func() time.Time
}

func New(store Store, resolver FoodResolver, goalResolver *goals.Resolver, engine *aggregate.Engine, opts Options, logger *zap.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ProgressCap <= 0 {
		opts.ProgressCap = aggregate.DefaultCap
	}
	return &Service{
		store:    store,
		resolver: resolver,
		goals:    goalResolver,
		engine:   engine,
		loc:      opts.Location,
		cap:      opts.ProgressCap,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// CreatePregnancy registers a pregnancy starting on the calendar date of
// startDate.
func (s *Service) CreatePregnancy(ctx context.Context, startDate time.Time) (*models.Pregnancy, error) {
	if startDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}
	p := &models.Pregnancy{
		ID:        uuid.NewString(),
		StartDate: time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreatePregnancy(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Pregnancy created",
		zap.String("pregnancy_id", p.ID),
		zap.String("start_date", p.StartDate.Format(time.DateOnly)),
	)
	return p, nil
}

func (s *Service) GetPregnancy(ctx context.Context, id string) (*models.Pregnancy, error) {
	p, err := s.store.GetPregnancy(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", goals.ErrPregnancyNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) ResolveFood(ctx context.Context, ref models.FoodReference) (models.FoodProfile, error) {
	return s.resolver.Resolve(ctx, ref)
}

// ManualAmount is one nutrient of a manually entered food. A nil Amount is
// unknown. An empty Unit means the nutrient's canonical unit.
type ManualAmount struct {
	Amount *float64 `json:"amount"`
	Unit   string   `json:"unit,omitempty"`
}

// ManualFood is a nutrient vector supplied by the user instead of a lookup.
// Without a reference basis the amounts describe the logged portion.
type ManualFood struct {
	Name              string                  `json:"name"`
	Nutrients         map[string]ManualAmount `json:"nutrients"`
	ReferenceQuantity float64                 `json:"reference_quantity,omitempty"`
	ReferenceUnit     string                  `json:"reference_unit,omitempty"`
}

type SubmitRequest struct {
	PregnancyID string
	Reference   *models.FoodReference
	Manual      *ManualFood
	Quantity    float64
	Unit        string
	MealType    string
	LoggedAt    time.Time
}

// SubmitNutritionLog resolves (or accepts) the food's nutrients and appends a
// new entry carrying a snapshot of them.
func (s *Service) SubmitNutritionLog(ctx context.Context, req SubmitRequest) (*models.NutritionLogEntry, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	mealType, err := models.ParseMealType(req.MealType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if (req.Reference == nil) == (req.Manual == nil) {
		return nil, fmt.Errorf("%w: exactly one of reference or manual nutrients is required", ErrInvalidRequest)
	}
	unit, err := canonicalUnit(req.Unit)
	if err != nil {
		return nil, err
	}

	p, err := s.GetPregnancy(ctx, req.PregnancyID)
	if err != nil {
		return nil, err
	}
	loggedAt := req.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}
	if _, _, err := goals.Trimester(p.StartDate, loggedAt.In(s.loc)); err != nil {
		return nil, err
	}

	var profile models.FoodProfile
	if req.Manual != nil {
		profile, err = s.manualProfile(req.Manual, req.Quantity, unit)
	} else {
		profile, err = s.resolver.Resolve(ctx, *req.Reference)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &models.NutritionLogEntry{
		ID:          uuid.NewString(),
		PregnancyID: p.ID,
		LoggedAt:    loggedAt.UTC(),
		Profile:     profile.Snapshot(),
		Quantity:    req.Quantity,
		Unit:        unit,
		MealType:    mealType,
		CreatedAt:   now,
	}
	if _, err := aggregate.Scale(entry); err != nil {
		return nil, err
	}
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Nutrition log entry stored",
		zap.String("entry_id", entry.ID),
		zap.String("pregnancy_id", entry.PregnancyID),
		zap.String("source", entry.Profile.SourceName),
		zap.Float64("quantity", entry.Quantity),
		zap.String("unit", entry.Unit),
	)
	return entry, nil
}

// CorrectionRequest lists the fields to change. Nil fields keep the original
// value. Without a new Reference or Manual food the original nutrient
// snapshot is reused.
type CorrectionRequest struct {
	Reference *models.FoodReference
	Manual    *ManualFood
	Quantity  *float64
	Unit      *string
	MealType  *string
	LoggedAt  *time.Time
}

// CorrectNutritionLog writes a replacement entry and tombstones the original
// in one step. It returns the replacement.
func (s *Service) CorrectNutritionLog(ctx context.Context, entryID string, req CorrectionRequest) (*models.NutritionLogEntry, error) {
	if req.Reference != nil && req.Manual != nil {
		return nil, fmt.Errorf("%w: give either a new reference or manual nutrients, not both", ErrInvalidRequest)
	}
	orig, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if orig.Tombstoned() {
		return nil, fmt.Errorf("%w: entry %s was already corrected or deleted", ErrInvalidRequest, entryID)
	}

	repl := &models.NutritionLogEntry{
		ID:          uuid.NewString(),
		PregnancyID: orig.PregnancyID,
		LoggedAt:    orig.LoggedAt,
		Profile:     orig.Profile.Snapshot(),
		Quantity:    orig.Quantity,
		Unit:        orig.Unit,
		MealType:    orig.MealType,
	}
	if req.Quantity != nil {
		if err := validateQuantity(*req.Quantity); err != nil {
			return nil, err
		}
		repl.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		if repl.Unit, err = canonicalUnit(*req.Unit); err != nil {
			return nil, err
		}
	}
	if req.MealType != nil {
		if repl.MealType, err = models.ParseMealType(*req.MealType); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if req.LoggedAt != nil {
		p, err := s.GetPregnancy(ctx, orig.PregnancyID)
		if err != nil {
			return nil, err
		}
		if _, _, err := goals.Trimester(p.StartDate, req.LoggedAt.In(s.loc)); err != nil {
			return nil, err
		}
		repl.LoggedAt = req.LoggedAt.UTC()
	}

	switch {
	case req.Reference != nil:
		profile, err := s.resolver.Resolve(ctx, *req.Reference)
		if err != nil {
			return nil, err
		}
		repl.Profile = profile.Snapshot()
	case req.Manual != nil:
		profile, err := s.manualProfile(req.Manual, repl.Quantity, repl.Unit)
		if err != nil {
			return nil, err
		}
		repl.Profile = profile
	}
	if _, err := aggregate.Scale(repl); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	repl.CreatedAt = now
	if err := s.store.ReplaceEntry(ctx, orig.ID, repl, now); err != nil {
		return nil, s.entryError(entryID, err)
	}
	s.logger.Info("Nutrition log entry corrected",
		zap.String("entry_id", orig.ID),
		zap.String("replacement_id", repl.ID),
	)
	return repl, nil
}

func (s *Service) DeleteNutritionLog(ctx context.Context, entryID string) error {
	if err := s.store.TombstoneEntry(ctx, entryID, s.now().UTC()); err != nil {
		return s.entryError(entryID, err)
	}
	s.logger.Info("Nutrition log entry deleted", zap.String("entry_id", entryID))
	return nil
}

// ListEntries returns entries logged on the calendar days from through to,
// both inclusive.
func (s *Service) ListEntries(ctx context.Context, pregnancyID string, from, to time.Time, includeTombstoned bool) ([]*models.NutritionLogEntry, error) {
	if _, err := s.GetPregnancy(ctx, pregnancyID); err != nil {
		return nil, err
	}
	q := storage.EntryQuery{PregnancyID: pregnancyID, IncludeTombstoned: includeTombstoned}
	if !from.IsZero() {
		q.Start = s.dayStart(from)
	}
	if !to.IsZero() {
		q.End = s.dayStart(to).AddDate(0, 0, 1)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && !q.End.After(q.Start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidRequest)
	}
	return s.store.ListEntries(ctx, q)
}

func (s *Service) GetGoals(ctx context.Context, pregnancyID string, date time.Time) (models.NutrientGoalTable, error) {
	return s.goals.GoalsFor(ctx, pregnancyID, s.dayStart(date))
}

func (s *Service) SetGoalOverride(ctx context.Context, pregnancyID string, nutrient models.Nutrient, trimester int, amount float64, unit string) (*models.GoalOverride, error) {
	return s.goals.SetOverride(ctx, pregnancyID, nutrient, trimester, amount, unit)
}

// GetDailyProgress aggregates one calendar day and compares it with the goals
// of that day's trimester.
func (s *Service) GetDailyProgress(ctx context.Context, pregnancyID string, date time.Time) (*models.DailyProgress, error) {
	schedule, err := s.goals.Load(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	day := s.dayStart(date)
	table, week, err := schedule.For(day)
	if err != nil {
		return nil, err
	}
	totals, err := s.engine.Aggregate(ctx, pregnancyID, aggregate.DateRange{Start: day, End: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil, err
	}
	return &models.DailyProgress{
		PregnancyID: pregnancyID,
		Date:        day.Format(time.DateOnly),
		Week:        week,
		Trimester:   table.Trimester,
		Totals:      totals,
		Goals:       table,
		Progress:    aggregate.Progress(totals, aggregate.GoalAmounts(table), s.cap),
	}, nil
}

func (s *Service) manualProfile(m *ManualFood, quantity float64, unit string) (models.FoodProfile, error) {
	v := models.NewNutrientVector()
	for key, a := range m.Nutrients {
		n, err := models.ParseNutrient(key)
		if err != nil {
			return models.FoodProfile{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if a.Amount == nil {
			continue
		}
		if *a.Amount < 0 || math.IsNaN(*a.Amount) || math.IsInf(*a.Amount, 0) {
			return models.FoodProfile{}, fmt.Errorf("%w: invalid amount for %s", ErrInvalidRequest, n)
		}
		from := a.Unit
		if from == "" {
			from = n.CanonicalUnit()
		}
		amount, err := units.ConvertNutrient(string(n), *a.Amount, from, n.CanonicalUnit())
		if err != nil {
			return models.FoodProfile{}, err
		}
		v.Set(n, amount)
	}

	refQty, refUnit := quantity, unit
	if m.ReferenceQuantity > 0 {
		refQty = m.ReferenceQuantity
		u, err := canonicalUnit(m.ReferenceUnit)
		if err != nil {
			return models.FoodProfile{}, err
		}
		refUnit = u
	}

	name := m.Name
	if name == "" {
		name = "manual entry"
	}
	ref, err := models.NewNameReference(name)
	if err != nil {
		return models.FoodProfile{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return models.FoodProfile{
		ProfileID:         uuid.NewString(),
		Reference:         ref,
		SourceName:        models.ManualSourceName,
		Name:              name,
		Nutrients:         v,
		ReferenceQuantity: refQty,
		ReferenceUnit:     refUnit,
		ResolvedAt:        s.now().UTC(),
	}, nil
}

func (s *Service) getEntry(ctx context.Context, id string) (*models.NutritionLogEntry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, s.entryError(id, err)
	}
	return e, nil
}

func (s *Service) entryError(id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	case errors.Is(err, storage.ErrTombstoned):
		return fmt.Errorf("%w: entry %s was already corrected or deleted", ErrInvalidRequest, id)
	}
	return err
}

// dayStart returns midnight of date's calendar day in the service location.
// The calendar date is taken as written, whatever zone date carries.
func (s *Service) dayStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
}

func validateQuantity(q float64) error {
	if !(q > 0) || math.IsInf(q, 0) {
		return fmt.Errorf("%w: quantity must be a positive number", ErrInvalidRequest)
	}
	return nil
}

func canonicalUnit(u string) (string, error) {
	if u == "" {
		return "", fmt.Errorf("%w: unit is required", ErrInvalidRequest)
	}
	if !units.Known(u) {
		return "", fmt.Errorf("%w: unknown unit %q", units.ErrIncompatibleUnit, u)
	}
	return units.Canonical(u), nil
}
