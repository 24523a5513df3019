package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-prenatal-log/internal/models"
)

const offProduct = `{
	"code": "3017620422003",
	"product_name": "Fortified Cereal",
	"brands": "Acme",
	"nutriments": {
		"energy-kcal_100g": 379,
		"proteins_100g": "8.5",
		"carbohydrates_100g": 80,
		"fat_100g": 2.1,
		"iron_100g": 0.0081,
		"folates_100g": 0.0003,
		"vitamin-d_100g": 0.0000042,
		"calcium_100g": null,
		"sodium_100g": 0.4
	}
}`

func TestNormalize_OpenFoodFacts(t *testing.T) {
	rec, err := NormalizeRecord([]byte(offProduct), OpenFoodFacts)
	require.NoError(t, err)

	assert.Equal(t, "3017620422003", rec.SourceID)
	assert.Equal(t, "Fortified Cereal", rec.Name)
	assert.Equal(t, 100.0, rec.ReferenceQuantity)
	assert.Equal(t, "g", rec.ReferenceUnit)

	iron, ok := rec.Nutrients.Amount(models.Iron)
	require.True(t, ok)
	assert.InDelta(t, 8.1, iron, 1e-9)

	folate, ok := rec.Nutrients.Amount(models.Folate)
	require.True(t, ok)
	assert.InDelta(t, 300, folate, 1e-9)

	d, ok := rec.Nutrients.Amount(models.VitaminD3)
	require.True(t, ok)
	assert.InDelta(t, 4.2, d, 1e-9)

	protein, ok := rec.Nutrients.Amount(models.Protein)
	require.True(t, ok, "numeric strings are accepted")
	assert.InDelta(t, 8.5, protein, 1e-9)

	_, ok = rec.Nutrients.Amount(models.Calcium)
	assert.False(t, ok, "null stays unknown")
	_, ok = rec.Nutrients.Amount(models.Choline)
	assert.False(t, ok, "absent stays unknown")

	_, tracked := rec.Nutrients["sodium"]
	assert.False(t, tracked, "untracked fields are dropped")
	assert.Len(t, rec.Nutrients, len(models.TrackedNutrients))
}

func TestNormalize_ServingSize(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		tag  SchemaTag
		qty  float64
		unit string
	}{
		{"off grams", `{"code":"1","serving_quantity":"30"}`, OpenFoodFacts, 30, "g"},
		{"off millilitres", `{"code":"1","serving_quantity":250,"serving_quantity_unit":"ml"}`, OpenFoodFacts, 250, "ml"},
		{"usda branded", `{"fdcId":1,"servingSize":28,"servingSizeUnit":"GRM"}`, USDA, 28, "g"},
		{"absent", offProduct, OpenFoodFacts, 0, ""},
		{"count unit dropped", `{"code":"1","serving_quantity":1,"serving_quantity_unit":"piece"}`, OpenFoodFacts, 0, ""},
		{"zero dropped", `{"code":"1","serving_quantity":0}`, OpenFoodFacts, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := NormalizeRecord([]byte(tc.doc), tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.qty, rec.ServingQuantity)
			assert.Equal(t, tc.unit, rec.ServingUnit)
		})
	}
}

func TestNormalize_OpenFoodFactsEnergyInKilojoules(t *testing.T) {
	v, err := Normalize([]byte(`{"nutriments":{"energy_100g":1000}}`), OpenFoodFacts)
	require.NoError(t, err)
	kcal, ok := v.Amount(models.Calories)
	require.True(t, ok)
	assert.InDelta(t, 239.006, kcal, 1e-6)
}

const usdaFood = `{
	"fdcId": 171287,
	"description": "Egg, whole, raw, fresh",
	"gtinUpc": "012345678905",
	"foodNutrients": [
		{"nutrientNumber": "203", "nutrientName": "Protein", "unitName": "G", "value": 12.6},
		{"nutrientNumber": "303", "nutrientName": "Iron, Fe", "unitName": "MG", "value": 1.75},
		{"nutrientNumber": "421", "nutrientName": "Choline, total", "unitName": "MG", "value": 294},
		{"nutrientNumber": "324", "nutrientName": "Vitamin D (D2 + D3), International Units", "unitName": "IU", "value": 82},
		{"nutrientNumber": "621", "nutrientName": "PUFA 22:6 n-3 (DHA)", "unitName": "G", "value": 0.058},
		{"nutrientNumber": "418", "nutrientName": "Vitamin B-12", "unitName": "UG", "value": 0.89},
		{"nutrientNumber": "999", "nutrientName": "Something else", "unitName": "MG", "value": 5}
	]
}`

func TestNormalize_USDA(t *testing.T) {
	rec, err := NormalizeRecord([]byte(usdaFood), USDA)
	require.NoError(t, err)
	assert.Equal(t, "171287", rec.SourceID)
	assert.Equal(t, "Egg, whole, raw, fresh", rec.Name)

	choline, ok := rec.Nutrients.Amount(models.Choline)
	require.True(t, ok)
	assert.InDelta(t, 294, choline, 1e-9)

	d, ok := rec.Nutrients.Amount(models.VitaminD3)
	require.True(t, ok, "IU entry is the fallback for vitamin D")
	assert.InDelta(t, 2.05, d, 1e-9)

	dha, ok := rec.Nutrients.Amount(models.DHA)
	require.True(t, ok)
	assert.InDelta(t, 58, dha, 1e-9)

	b12, ok := rec.Nutrients.Amount(models.VitaminB12)
	require.True(t, ok)
	assert.InDelta(t, 0.89, b12, 1e-9)

	_, ok = rec.Nutrients.Amount(models.Folate)
	assert.False(t, ok)
}

func TestNormalize_USDADetailShape(t *testing.T) {
	raw := `{"fdcId": 1, "description": "Spinach", "foodNutrients": [
		{"nutrient": {"number": "435", "unitName": "µg"}, "amount": 194}
	]}`
	v, err := Normalize([]byte(raw), USDA)
	require.NoError(t, err)
	folate, ok := v.Amount(models.Folate)
	require.True(t, ok)
	assert.InDelta(t, 194, folate, 1e-9)
}

func TestNormalize_Edamam(t *testing.T) {
	raw := `{"food": {"foodId": "food_a1", "label": "Salmon", "nutrients": {"ENERC_KCAL": 208, "PROCNT": 20.4, "FADHA": 1.1}}}`
	rec, err := NormalizeRecord([]byte(raw), Edamam)
	require.NoError(t, err)
	assert.Equal(t, "food_a1", rec.SourceID)
	dha, ok := rec.Nutrients.Amount(models.DHA)
	require.True(t, ok)
	assert.InDelta(t, 1100, dha, 1e-9)
}

func TestNormalize_Estimate(t *testing.T) {
	raw := `{"name": "lentil soup", "reference_quantity": 1, "reference_unit": "cup",
		"nutrients": {"iron": {"amount": 3.3, "unit": "mg"}, "folate": 180, "vitamin_d3": {"amount": 40, "unit": "IU"}, "zinc": {"amount": "n/a"}}}`
	rec, err := NormalizeRecord([]byte(raw), Estimate)
	require.NoError(t, err)
	assert.Equal(t, "cup", rec.ReferenceUnit)
	assert.Equal(t, 1.0, rec.ReferenceQuantity)

	folate, ok := rec.Nutrients.Amount(models.Folate)
	require.True(t, ok)
	assert.Equal(t, 180.0, folate)

	d, ok := rec.Nutrients.Amount(models.VitaminD3)
	require.True(t, ok)
	assert.InDelta(t, 1.0, d, 1e-9)

	_, ok = rec.Nutrients.Amount(models.Zinc)
	assert.False(t, ok)
}

func TestNormalize_EstimateUnknownReferenceUnit(t *testing.T) {
	rec, err := NormalizeRecord([]byte(`{"reference_unit": "bowl"}`), Estimate)
	require.NoError(t, err)
	assert.Equal(t, "serving", rec.ReferenceUnit)
}

func TestNormalize_Malformed(t *testing.T) {
	_, err := Normalize([]byte(`<html>502 Bad Gateway</html>`), OpenFoodFacts)
	assert.ErrorIs(t, err, ErrMalformedSourceRecord)

	_, err = Normalize([]byte(`[1,2,3]`), USDA)
	assert.ErrorIs(t, err, ErrMalformedSourceRecord)

	_, err = Normalize([]byte(`{}`), SchemaTag("nope"))
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestNormalize_NegativeAndGarbageAreUnknown(t *testing.T) {
	v, err := Normalize([]byte(`{"nutriments":{"iron_100g":-1,"zinc_100g":"lots"}}`), OpenFoodFacts)
	require.NoError(t, err)
	assert.Equal(t, 0, v.KnownCount())
}

func TestNormalize_Deterministic(t *testing.T) {
	for _, tag := range []SchemaTag{OpenFoodFacts, USDA} {
		raw := []byte(offProduct)
		if tag == USDA {
			raw = []byte(usdaFood)
		}
		first, err := Normalize(raw, tag)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := Normalize(raw, tag)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}
