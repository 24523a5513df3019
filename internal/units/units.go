// internal/units/units.go
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompatibleUnit is returned when no conversion exists between two units.
var ErrIncompatibleUnit = errors.New("incompatible unit")

type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Energy Dimension = "energy"
	Count  Dimension = "count"
)

// Canonical unit spellings.
const (
	Gram       = "g"
	Milligram  = "mg"
	Microgram  = "mcg"
	Kilocal    = "kcal"
	Milliliter = "ml"
	Serving    = "serving"
	IU         = "iu"
)

type unitDef struct {
	dim Dimension
	// factor converts one of this unit into the dimension's base unit
	// (g, ml, kcal). Count units have no shared base.
	factor float64
}

var table = map[string]unitDef{
	"kg":      {Mass, 1000},
	"g":       {Mass, 1},
	"mg":      {Mass, 1e-3},
	"mcg":     {Mass, 1e-6},
	"oz":      {Mass, 28.349523125},
	"lb":      {Mass, 453.59237},
	"l":       {Volume, 1000},
	"dl":      {Volume, 100},
	"ml":      {Volume, 1},
	"cup":     {Volume, 240},
	"tbsp":    {Volume, 15},
	"tsp":     {Volume, 5},
	"fl_oz":   {Volume, 29.5735},
	"kcal":    {Energy, 1},
	"kj":      {Energy, 0.239006},
	"serving": {Count, 1},
	"piece":   {Count, 1},
}

var aliases = map[string]string{
	"µg":           "mcg",
	"μg":           "mcg",
	"ug":           "mcg",
	"microgram":    "mcg",
	"micrograms":   "mcg",
	"milligram":    "mg",
	"milligrams":   "mg",
	"gram":         "g",
	"grams":        "g",
	"gr":           "g",
	"grm":          "g",
	"kilogram":     "kg",
	"kilograms":    "kg",
	"ounce":        "oz",
	"ounces":       "oz",
	"pound":        "lb",
	"pounds":       "lb",
	"lbs":          "lb",
	"liter":        "l",
	"litre":        "l",
	"liters":       "l",
	"milliliter":   "ml",
	"millilitre":   "ml",
	"milliliters":  "ml",
	"mlt":          "ml",
	"cups":         "cup",
	"tablespoon":   "tbsp",
	"tablespoons":  "tbsp",
	"teaspoon":     "tsp",
	"teaspoons":    "tsp",
	"fl oz":        "fl_oz",
	"floz":         "fl_oz",
	"cal":          "kcal",
	"kilocalorie":  "kcal",
	"kilocalories": "kcal",
	"kcals":        "kcal",
	"kilojoule":    "kj",
	"kilojoules":   "kj",
	"servings":     "serving",
	"pieces":       "piece",
	"pc":           "piece",
	"pcs":          "piece",
	"i.u.":         "iu",
}

// Canonical returns the canonical spelling of unit, or the lowercased input
// when the unit is not known.
func Canonical(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if a, ok := aliases[u]; ok {
		return a
	}
	return u
}

// Known reports whether unit belongs to the conversion table.
func Known(unit string) bool {
	_, ok := table[Canonical(unit)]
	return ok
}

// DimensionOf returns the dimension of unit.
func DimensionOf(unit string) (Dimension, error) {
	def, ok := table[Canonical(unit)]
	if !ok {
		return "", fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, unit)
	}
	return def.dim, nil
}

// Convert converts amount from one unit to another within a dimension.
// Count units (serving, piece) only convert to themselves.
func Convert(amount float64, from, to string) (float64, error) {
	f, t := Canonical(from), Canonical(to)
	if f == t {
		if _, ok := table[f]; !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, from)
		}
		return amount, nil
	}
	fd, ok := table[f]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, from)
	}
	td, ok := table[t]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, to)
	}
	if fd.dim != td.dim || fd.dim == Count {
		return 0, fmt.Errorf("%w: %s -> %s", ErrIncompatibleUnit, f, t)
	}
	return amount * fd.factor / td.factor, nil
}

// IU conversion factors to micrograms, keyed by nutrient identifier.
// Vitamin D: 1 IU = 0.025 mcg. Vitamin A (retinol): 1 IU = 0.3 mcg RAE.
var iuToMicrogram = map[string]float64{
	"vitamin_d3": 0.025,
	"vitamin_a":  0.3,
}

// ConvertNutrient is Convert with nutrient-specific IU handling.
func ConvertNutrient(nutrient string, amount float64, from, to string) (float64, error) {
	f, t := Canonical(from), Canonical(to)
	if f == IU || t == IU {
		factor, ok := iuToMicrogram[nutrient]
		if !ok {
			return 0, fmt.Errorf("%w: no IU factor for %s", ErrIncompatibleUnit, nutrient)
		}
		if f == IU && t == IU {
			return amount, nil
		}
		if f == IU {
			return Convert(amount*factor, Microgram, t)
		}
		mcg, err := Convert(amount, f, Microgram)
		if err != nil {
			return 0, err
		}
		return mcg / factor, nil
	}
	return Convert(amount, f, t)
}
