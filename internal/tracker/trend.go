// internal/tracker/trend.go
package tracker

import (
	"context"
	"fmt"
	"iter"
	"time"

	"mcp-prenatal-log/internal/aggregate"
	"mcp-prenatal-log/internal/models"
)

// MaxTrendDays bounds a single trend request.
const MaxTrendDays = 366

// TrendOverRange yields progress for consecutive periods covering the
// calendar days start through end. Weekly periods start on start and the
// last one is cut at end. Each period is aggregated only when the consumer
// asks for it; iteration stops after the first error. The sequence can be
// ranged over more than once and re-reads the log every time.
func (s *Service) TrendOverRange(ctx context.Context, pregnancyID string, start, end time.Time, g models.Granularity) iter.Seq2[models.PeriodProgress, error] {
	return func(yield func(models.PeriodProgress, error) bool) {
		step, err := stepDays(g)
		if err != nil {
			yield(models.PeriodProgress{}, err)
			return
		}
		first, last := s.dayStart(start), s.dayStart(end)
		if last.Before(first) {
			yield(models.PeriodProgress{}, fmt.Errorf("%w: end date before start date", ErrInvalidRequest))
			return
		}
		if days := daysIn(first, last); days > MaxTrendDays {
			yield(models.PeriodProgress{}, fmt.Errorf("%w: range of %d days exceeds %d", ErrInvalidRequest, days, MaxTrendDays))
			return
		}

		schedule, err := s.goals.Load(ctx, pregnancyID)
		if err != nil {
			yield(models.PeriodProgress{}, err)
			return
		}

		for pStart := first; !pStart.After(last); pStart = pStart.AddDate(0, 0, step) {
			if err := ctx.Err(); err != nil {
				yield(models.PeriodProgress{}, err)
				return
			}
			pEnd := pStart.AddDate(0, 0, step-1)
			if pEnd.After(last) {
				pEnd = last
			}

			period := models.PeriodProgress{
				Start: pStart.Format(time.DateOnly),
				End:   pEnd.Format(time.DateOnly),
				Goals: make(map[models.Nutrient]float64, len(models.TrackedNutrients)),
			}
			for d := pStart; !d.After(pEnd); d = d.AddDate(0, 0, 1) {
				table, _, err := schedule.For(d)
				if err != nil {
					yield(models.PeriodProgress{}, err)
					return
				}
				if d.Equal(pStart) {
					period.Trimester = table.Trimester
				}
				for n, goal := range table.Goals {
					period.Goals[n] += goal.DailyGoalAmount
				}
			}

			totals, err := s.engine.Aggregate(ctx, pregnancyID, aggregate.DateRange{Start: pStart, End: pEnd.AddDate(0, 0, 1)})
			if err != nil {
				yield(models.PeriodProgress{}, err)
				return
			}
			period.Totals = totals
			period.Progress = aggregate.Progress(totals, period.Goals, s.cap)

			if !yield(period, nil) {
				return
			}
		}
	}
}

// CollectTrend drains a trend into a slice.
func CollectTrend(seq iter.Seq2[models.PeriodProgress, error]) ([]models.PeriodProgress, error) {
	var out []models.PeriodProgress
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func stepDays(g models.Granularity) (int, error) {
	switch g {
	case models.Daily, "":
		return 1, nil
	case models.Weekly:
		return 7, nil
	default:
		return 0, fmt.Errorf("%w: unknown granularity %q", ErrInvalidRequest, g)
	}
}

func daysIn(first, last time.Time) int {
	n := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		n++
		if n > MaxTrendDays {
			break
		}
	}
	return n
}
