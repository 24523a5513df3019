// internal/models/progress.go
package models

import "time"

type GoalSource string

const (
	DefaultGoal  GoalSource = "default"
	OverrideGoal GoalSource = "override"
)

type NutrientGoal struct {
	DailyGoalAmount float64    `json:"daily_goal_amount"`
	Unit            string     `json:"unit"`
	Source          GoalSource `json:"source"`
}

type NutrientGoalTable struct {
	Trimester int                       `json:"trimester"`
	Goals     map[Nutrient]NutrientGoal `json:"goals"`
}

// GoalOverride is one row of a pregnancy's goal history. Trimester 0 applies
// to every trimester.
type GoalOverride struct {
	PregnancyID string    `json:"pregnancy_id"`
	Nutrient    Nutrient  `json:"nutrient"`
	Trimester   int       `json:"trimester"`
	Amount      float64   `json:"amount"`
	Unit        string    `json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
}

type TotalStatus string

const (
	StatusComplete TotalStatus = "complete"
	StatusPartial  TotalStatus = "partial"
	StatusUnknown  TotalStatus = "unknown"
	StatusNoGoal   TotalStatus = "no_goal"
)

type NutrientTotal struct {
	Amount       *float64    `json:"amount"`
	Unit         string      `json:"unit"`
	Status       TotalStatus `json:"status"`
	KnownEntries int         `json:"known_entries"`
}

type PerNutrientTotals struct {
	Nutrients    map[Nutrient]NutrientTotal `json:"nutrients"`
	EntryCount   int                        `json:"entry_count"`
	PartialCount int                        `json:"partial_count"`
}

type NutrientProgress struct {
	Ratio  *float64    `json:"ratio"`
	Capped bool        `json:"capped,omitempty"`
	Status TotalStatus `json:"status"`
}

type DailyProgress struct {
	PregnancyID string                        `json:"pregnancy_id"`
	Date        string                        `json:"date"`
	Week        int                           `json:"week"`
	Trimester   int                           `json:"trimester"`
	Totals      PerNutrientTotals             `json:"totals"`
	Goals       NutrientGoalTable             `json:"goals"`
	Progress    map[Nutrient]NutrientProgress `json:"progress"`
}

type Granularity string

const (
	Daily  Granularity = "day"
	Weekly Granularity = "week"
)

// PeriodProgress is one element of a trend. Goals hold the summed daily goals
// for the days in the period.
type PeriodProgress struct {
	Start     string                        `json:"start"`
	End       string                        `json:"end"`
	Trimester int                           `json:"trimester"`
	Totals    PerNutrientTotals             `json:"totals"`
	Goals     map[Nutrient]float64          `json:"goals"`
	Progress  map[Nutrient]NutrientProgress `json:"progress"`
}
