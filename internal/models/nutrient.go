// internal/models/nutrient.go
package models

import (
	"fmt"
	"sort"
)

type Nutrient string

const (
	Folate     Nutrient = "folate"
	Choline    Nutrient = "choline"
	Iron       Nutrient = "iron"
	VitaminD3  Nutrient = "vitamin_d3"
	DHA        Nutrient = "dha"
	VitaminA   Nutrient = "vitamin_a"
	Iodine     Nutrient = "iodine"
	VitaminB12 Nutrient = "vitamin_b12"
	Magnesium  Nutrient = "magnesium"
	Zinc       Nutrient = "zinc"
	Calcium    Nutrient = "calcium"
	Selenium   Nutrient = "selenium"
	Copper     Nutrient = "copper"
	Calories   Nutrient = "calories"
	Protein    Nutrient = "protein"
	Carbs      Nutrient = "carbs"
	Fat        Nutrient = "fat"
	Fiber      Nutrient = "fiber"
)

// TrackedNutrients lists every nutrient in display order.
var TrackedNutrients = []Nutrient{
	Folate, Choline, Iron, VitaminD3, DHA, VitaminA, Iodine, VitaminB12,
	Magnesium, Zinc, Calcium, Selenium, Copper,
	Calories, Protein, Carbs, Fat, Fiber,
}

var canonicalUnits = map[Nutrient]string{
	Folate:     "mcg",
	Choline:    "mg",
	Iron:       "mg",
	VitaminD3:  "mcg",
	DHA:        "mg",
	VitaminA:   "mcg",
	Iodine:     "mcg",
	VitaminB12: "mcg",
	Magnesium:  "mg",
	Zinc:       "mg",
	Calcium:    "mg",
	Selenium:   "mcg",
	Copper:     "mg",
	Calories:   "kcal",
	Protein:    "g",
	Carbs:      "g",
	Fat:        "g",
	Fiber:      "g",
}

// CanonicalUnit returns the unit every stored amount of n is expressed in.
func (n Nutrient) CanonicalUnit() string {
	return canonicalUnits[n]
}

func (n Nutrient) Valid() bool {
	_, ok := canonicalUnits[n]
	return ok
}

// ParseNutrient validates a nutrient identifier.
func ParseNutrient(s string) (Nutrient, error) {
	n := Nutrient(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown nutrient %q", s)
	}
	return n, nil
}

// NutrientVector maps every tracked nutrient to an amount in canonical units.
// A nil amount means unknown, which is not the same as zero.
type NutrientVector map[Nutrient]*float64

// NewNutrientVector returns a vector with every nutrient unknown.
func NewNutrientVector() NutrientVector {
	v := make(NutrientVector, len(TrackedNutrients))
	for _, n := range TrackedNutrients {
		v[n] = nil
	}
	return v
}

// Amount returns the amount for n and whether it is known.
func (v NutrientVector) Amount(n Nutrient) (float64, bool) {
	p := v[n]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set records a known amount for n.
func (v NutrientVector) Set(n Nutrient, amount float64) {
	a := amount
	v[n] = &a
}

// Clone deep-copies v and fills in any missing tracked nutrient as unknown.
// Keys outside the tracked set are dropped.
func (v NutrientVector) Clone() NutrientVector {
	out := NewNutrientVector()
	for _, n := range TrackedNutrients {
		if p := v[n]; p != nil {
			out.Set(n, *p)
		}
	}
	return out
}

// KnownCount returns how many nutrients have a known amount.
func (v NutrientVector) KnownCount() int {
	c := 0
	for _, n := range TrackedNutrients {
		if v[n] != nil {
			c++
		}
	}
	return c
}

// Validate rejects unknown nutrient keys and negative amounts.
func (v NutrientVector) Validate() error {
	keys := make([]string, 0, len(v))
	for n := range v {
		keys = append(keys, string(n))
	}
	sort.Strings(keys)
	for _, k := range keys {
		n := Nutrient(k)
		if !n.Valid() {
			return fmt.Errorf("unknown nutrient %q", k)
		}
		if p := v[n]; p != nil && *p < 0 {
			return fmt.Errorf("negative amount for %s", k)
		}
	}
	return nil
}
