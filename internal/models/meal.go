// internal/models/meal.go
package models

import (
	"fmt"
	"time"
)

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
	OtherMeal MealType = "other"
)

func ParseMealType(s string) (MealType, error) {
	switch m := MealType(s); m {
	case Breakfast, Lunch, Dinner, Snack, OtherMeal:
		return m, nil
	case "":
		return OtherMeal, nil
	default:
		return "", fmt.Errorf("unknown meal type %q", s)
	}
}

// NutritionLogEntry embeds a copy of the resolved profile so historical
// totals never change when a food is re-resolved later.
type NutritionLogEntry struct {
	ID           string      `json:"id"`
	PregnancyID  string      `json:"pregnancy_id"`
	LoggedAt     time.Time   `json:"logged_at"`
	Profile      FoodProfile `json:"profile"`
	Quantity     float64     `json:"quantity"`
	Unit         string      `json:"unit"`
	MealType     MealType    `json:"meal_type"`
	ReplacesID   string      `json:"replaces_id,omitempty"`
	TombstonedAt *time.Time  `json:"tombstoned_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (e *NutritionLogEntry) Tombstoned() bool {
	return e.TombstonedAt != nil
}

type Pregnancy struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"start_date"`
	CreatedAt time.Time `json:"created_at"`
}
