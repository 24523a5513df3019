// internal/aggregate/progress.go
package aggregate

import "mcp-prenatal-log/internal/models"

const DefaultCap = 2.0

// GoalAmounts flattens a goal table to amounts in canonical units.
func GoalAmounts(table models.NutrientGoalTable) map[models.Nutrient]float64 {
	out := make(map[models.Nutrient]float64, len(table.Goals))
	for n, g := range table.Goals {
		out[n] = g.DailyGoalAmount
	}
	return out
}

// Progress compares totals against goals. Ratios are clamped at limit;
// unknown and partial totals carry their status instead of a ratio.
func Progress(totals models.PerNutrientTotals, goals map[models.Nutrient]float64, limit float64) map[models.Nutrient]models.NutrientProgress {
	if limit <= 0 {
		limit = DefaultCap
	}
	out := make(map[models.Nutrient]models.NutrientProgress, len(models.TrackedNutrients))
	for _, n := range models.TrackedNutrients {
		t, ok := totals.Nutrients[n]
		if !ok {
			t = models.NutrientTotal{Status: models.StatusUnknown}
		}
		if t.Status == models.StatusUnknown || t.Status == models.StatusPartial || t.Amount == nil {
			status := t.Status
			if t.Amount == nil {
				status = models.StatusUnknown
			}
			out[n] = models.NutrientProgress{Status: status}
			continue
		}
		goal := goals[n]
		if goal <= 0 {
			out[n] = models.NutrientProgress{Status: models.StatusNoGoal}
			continue
		}
		ratio := *t.Amount / goal
		p := models.NutrientProgress{Status: models.StatusComplete}
		if ratio > limit {
			ratio = limit
			p.Capped = true
		}
		p.Ratio = &ratio
		out[n] = p
	}
	return out
}
