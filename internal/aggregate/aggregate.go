// internal/aggregate/aggregate.go
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/units"
)

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// EntryReader returns the live entries of a pregnancy logged in [start, end)
// in a single read.
type EntryReader interface {
	EntriesInRange(ctx context.Context, pregnancyID string, start, end time.Time) ([]*models.NutritionLogEntry, error)
}

type Engine struct {
	reader EntryReader
	logger *zap.Logger
}

func NewEngine(reader EntryReader, logger *zap.Logger) *Engine {
	return &Engine{reader: reader, logger: logger}
}

func (e *Engine) Aggregate(ctx context.Context, pregnancyID string, r DateRange) (models.PerNutrientTotals, error) {
	if !r.End.After(r.Start) {
		return models.PerNutrientTotals{}, fmt.Errorf("empty date range %s - %s", r.Start, r.End)
	}
	entries, err := e.reader.EntriesInRange(ctx, pregnancyID, r.Start, r.End)
	if err != nil {
		return models.PerNutrientTotals{}, fmt.Errorf("failed to read entries: %w", err)
	}
	totals, err := Sum(entries)
	if err != nil {
		return models.PerNutrientTotals{}, err
	}
	e.logger.Debug("Aggregated entries",
		zap.String("pregnancy_id", pregnancyID),
		zap.Time("start", r.Start),
		zap.Time("end", r.End),
		zap.Int("entries", totals.EntryCount),
		zap.Int("partial_nutrients", totals.PartialCount),
	)
	return totals, nil
}

// Scale returns how many reference portions an entry represents.
func Scale(e *models.NutritionLogEntry) (float64, error) {
	refQty := e.Profile.ReferenceQuantity
	if refQty <= 0 {
		refQty = 1
	}
	refUnit := e.Profile.ReferenceUnit
	if refUnit == "" {
		refUnit = units.Serving
	}
	qty, unit := e.Quantity, e.Unit
	if units.Canonical(unit) == units.Serving && units.Canonical(refUnit) != units.Serving && e.Profile.ServingQuantity > 0 {
		qty, unit = qty*e.Profile.ServingQuantity, e.Profile.ServingUnit
	}
	qty, err := units.Convert(qty, unit, refUnit)
	if err != nil {
		return 0, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return qty / refQty, nil
}

// Sum totals the scaled nutrient vectors of entries. The result does not
// depend on the order of entries.
func Sum(entries []*models.NutritionLogEntry) (models.PerNutrientTotals, error) {
	contributions := make(map[models.Nutrient][]float64, len(models.TrackedNutrients))
	for _, e := range entries {
		scale, err := Scale(e)
		if err != nil {
			return models.PerNutrientTotals{}, err
		}
		for _, n := range models.TrackedNutrients {
			if v, ok := e.Profile.Nutrients.Amount(n); ok {
				contributions[n] = append(contributions[n], v*scale)
			}
		}
	}

	totals := models.PerNutrientTotals{
		Nutrients:  make(map[models.Nutrient]models.NutrientTotal, len(models.TrackedNutrients)),
		EntryCount: len(entries),
	}
	for _, n := range models.TrackedNutrients {
		vals := contributions[n]
		t := models.NutrientTotal{Unit: n.CanonicalUnit(), KnownEntries: len(vals)}
		switch {
		case len(entries) > 0 && len(vals) == 0:
			t.Status = models.StatusUnknown
		default:
			// sorted so every entry order gives a bit-identical sum
			sort.Float64s(vals)
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			t.Amount = &sum
			t.Status = models.StatusComplete
			if len(vals) < len(entries) {
				t.Status = models.StatusPartial
				totals.PartialCount++
			}
		}
		totals.Nutrients[n] = t
	}
	return totals, nil
}
