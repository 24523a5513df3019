// internal/goals/defaults.go
package goals

import "mcp-prenatal-log/internal/models"

// Daily recommended intake during pregnancy, indexed by trimester 1-3.
var defaults = map[models.Nutrient][3]float64{
	models.Folate:     {600, 600, 600},
	models.Choline:    {450, 450, 450},
	models.Iron:       {27, 27, 27},
	models.VitaminD3:  {15, 15, 15},
	models.DHA:        {200, 200, 200},
	models.VitaminA:   {770, 770, 770},
	models.Iodine:     {220, 220, 220},
	models.VitaminB12: {2.6, 2.6, 2.6},
	models.Magnesium:  {350, 350, 350},
	models.Zinc:       {11, 11, 11},
	models.Calcium:    {1000, 1000, 1000},
	models.Selenium:   {60, 60, 60},
	models.Copper:     {1, 1, 1},
	models.Calories:   {2000, 2340, 2450},
	models.Protein:    {60, 71, 71},
	models.Carbs:      {175, 175, 175},
	models.Fat:        {70, 78, 82},
	models.Fiber:      {28, 28, 28},
}

// DefaultTable returns a fresh copy of the built-in goals for trimester.
// Out-of-range trimesters are clamped to 1-3.
func DefaultTable(trimester int) models.NutrientGoalTable {
	if trimester < 1 {
		trimester = 1
	}
	if trimester > 3 {
		trimester = 3
	}
	table := models.NutrientGoalTable{
		Trimester: trimester,
		Goals:     make(map[models.Nutrient]models.NutrientGoal, len(defaults)),
	}
	for _, n := range models.TrackedNutrients {
		table.Goals[n] = models.NutrientGoal{
			DailyGoalAmount: defaults[n][trimester-1],
			Unit:            n.CanonicalUnit(),
			Source:          models.DefaultGoal,
		}
	}
	return table
}
