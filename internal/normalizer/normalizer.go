// internal/normalizer/normalizer.go
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/units"
)

var (
	// ErrMalformedSourceRecord means the record is not a JSON document at all.
	// Missing fields are not an error.
	ErrMalformedSourceRecord = errors.New("malformed source record")
	ErrUnknownSchema         = errors.New("unknown source schema")
)

// Record is a source document reduced to the canonical shape.
type Record struct {
	SourceID          string
	Name              string
	Nutrients         models.NutrientVector
	ReferenceQuantity float64
	ReferenceUnit     string

	// ServingQuantity is zero when the source gives no usable serving size.
	ServingQuantity float64
	ServingUnit     string
}

// Normalize maps a raw source document onto the canonical nutrient vector.
func Normalize(raw []byte, tag SchemaTag) (models.NutrientVector, error) {
	rec, err := NormalizeRecord(raw, tag)
	if err != nil {
		return nil, err
	}
	return rec.Nutrients, nil
}

// NormalizeRecord is Normalize plus the descriptive fields and the unit basis
// the nutrient amounts refer to.
func NormalizeRecord(raw []byte, tag SchemaTag) (Record, error) {
	s, ok := schemas[tag]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownSchema, tag)
	}
	if !gjson.ValidBytes(raw) {
		return Record{}, fmt.Errorf("%w: invalid JSON from %s", ErrMalformedSourceRecord, tag)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Record{}, fmt.Errorf("%w: %s record is not an object", ErrMalformedSourceRecord, tag)
	}

	rec := Record{
		SourceID:          strings.TrimSpace(doc.Get(s.idPath).String()),
		Nutrients:         models.NewNutrientVector(),
		ReferenceQuantity: s.refQuantity,
		ReferenceUnit:     s.refUnit,
	}
	for _, p := range s.namePaths {
		if name := strings.TrimSpace(doc.Get(p).String()); name != "" {
			rec.Name = name
			break
		}
	}
	if s.refQtyPath != "" {
		if q, ok := number(doc.Get(s.refQtyPath)); ok && q > 0 {
			rec.ReferenceQuantity = q
		}
	}
	if s.refUnitPath != "" {
		if u := doc.Get(s.refUnitPath).String(); u != "" {
			if units.Known(u) {
				rec.ReferenceUnit = units.Canonical(u)
			} else {
				rec.ReferenceUnit = units.Serving
			}
		}
	}

	if s.servingQtyPath != "" {
		rec.ServingQuantity, rec.ServingUnit = serving(doc, s)
	}

	for _, n := range models.TrackedNutrients {
		m, ok := s.fields[n]
		if !ok {
			continue
		}
		if v, ok := extract(doc, n, m); ok {
			rec.Nutrients.Set(n, v)
		}
	}
	return rec, nil
}

// extract returns the first usable amount for n, already in canonical units.
func extract(doc gjson.Result, n models.Nutrient, m fieldMapping) (float64, bool) {
	for i, p := range m.paths {
		v, ok := number(doc.Get(p))
		if !ok {
			continue
		}
		unit := m.unit
		if i < len(m.units) && m.units[i] != "" {
			unit = m.units[i]
		}
		if i < len(m.unitPaths) && m.unitPaths[i] != "" {
			if u := doc.Get(m.unitPaths[i]); u.Type == gjson.String && u.Str != "" {
				unit = u.Str
			}
		}
		converted, err := units.ConvertNutrient(string(n), v, unit, n.CanonicalUnit())
		if err != nil {
			// an amount we cannot interpret is as good as absent
			continue
		}
		return converted, true
	}
	return 0, false
}

// serving reads the serving size. It is dropped unless its unit is a mass or
// volume unit.
func serving(doc gjson.Result, s schema) (float64, string) {
	q, ok := number(doc.Get(s.servingQtyPath))
	if !ok || q == 0 {
		return 0, ""
	}
	unit := s.servingUnit
	if u := doc.Get(s.servingUnitPath); s.servingUnitPath != "" && u.Type == gjson.String && u.Str != "" {
		unit = u.Str
	}
	dim, err := units.DimensionOf(unit)
	if err != nil || (dim != units.Mass && dim != units.Volume) {
		return 0, ""
	}
	return q, units.Canonical(unit)
}

func number(r gjson.Result) (float64, bool) {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
