// internal/normalizer/schema.go
package normalizer

import (
	"fmt"

	"mcp-prenatal-log/internal/models"
)

type SchemaTag string

const (
	OpenFoodFacts SchemaTag = "openfoodfacts"
	USDA          SchemaTag = "usda_fdc"
	Edamam        SchemaTag = "edamam"
	Estimate      SchemaTag = "estimate"
)

// fieldMapping locates one nutrient inside a source document. Paths are gjson
// paths tried in order; the first one holding a usable number wins. The unit
// of paths[i] is read from unitPaths[i] when that resolves to a string, else
// units[i] when set, else unit.
type fieldMapping struct {
	paths     []string
	unitPaths []string
	units     []string
	unit      string
}

type schema struct {
	idPath      string
	namePaths   []string
	refQtyPath  string
	refUnitPath string
	refQuantity float64
	refUnit     string
	fields      map[models.Nutrient]fieldMapping

	servingQtyPath  string
	servingUnitPath string
	servingUnit     string
}

// off reports nutriments per 100 g, with every mass in grams.
func off(keys ...string) fieldMapping {
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = "nutriments." + k + "_100g"
	}
	return fieldMapping{paths: paths, unit: "g"}
}

// usda matches foodNutrients entries by nutrient number, in both the search
// result shape and the food details shape.
func usda(numbers ...string) fieldMapping {
	var m fieldMapping
	for _, n := range numbers {
		m.paths = append(m.paths,
			fmt.Sprintf(`foodNutrients.#(nutrientNumber=="%s").value`, n),
			fmt.Sprintf(`foodNutrients.#(nutrient.number=="%s").amount`, n),
		)
		m.unitPaths = append(m.unitPaths,
			fmt.Sprintf(`foodNutrients.#(nutrientNumber=="%s").unitName`, n),
			fmt.Sprintf(`foodNutrients.#(nutrient.number=="%s").nutrient.unitName`, n),
		)
	}
	return m
}

func edamam(code, unit string) fieldMapping {
	return fieldMapping{paths: []string{"food.nutrients." + code}, unit: unit}
}

func estimate(n models.Nutrient) fieldMapping {
	return fieldMapping{
		paths:     []string{"nutrients." + string(n) + ".amount", "nutrients." + string(n)},
		unitPaths: []string{"nutrients." + string(n) + ".unit"},
		unit:      n.CanonicalUnit(),
	}
}

var schemas = map[SchemaTag]schema{
	OpenFoodFacts: {
		idPath:      "code",
		namePaths:   []string{"product_name", "generic_name", "product_name_en"},
		refQuantity: 100,
		refUnit:     "g",

		servingQtyPath:  "serving_quantity",
		servingUnitPath: "serving_quantity_unit",
		servingUnit:     "g",

		fields: map[models.Nutrient]fieldMapping{
			models.Folate:     off("folates", "vitamin-b9"),
			models.Choline:    off("choline"),
			models.Iron:       off("iron"),
			models.VitaminD3:  off("vitamin-d"),
			models.DHA:        off("docosahexaenoic-acid", "dha"),
			models.VitaminA:   off("vitamin-a"),
			models.Iodine:     off("iodine"),
			models.VitaminB12: off("vitamin-b12"),
			models.Magnesium:  off("magnesium"),
			models.Zinc:       off("zinc"),
			models.Calcium:    off("calcium"),
			models.Selenium:   off("selenium"),
			models.Copper:     off("copper"),
			models.Calories: {
				paths: []string{"nutriments.energy-kcal_100g", "nutriments.energy_100g"},
				units: []string{"kcal", "kj"},
			},
			models.Protein: off("proteins"),
			models.Carbs:   off("carbohydrates"),
			models.Fat:     off("fat"),
			models.Fiber:   off("fiber"),
		},
	},
	USDA: {
		idPath:      "fdcId",
		namePaths:   []string{"description", "lowercaseDescription"},
		refQuantity: 100,
		refUnit:     "g",

		servingQtyPath:  "servingSize",
		servingUnitPath: "servingSizeUnit",
		servingUnit:     "g",

		fields: map[models.Nutrient]fieldMapping{
			models.Folate:     usda("435", "417"),
			models.Choline:    usda("421"),
			models.Iron:       usda("303"),
			models.VitaminD3:  usda("328", "324"),
			models.DHA:        usda("621"),
			models.VitaminA:   usda("320", "318"),
			models.Iodine:     usda("314"),
			models.VitaminB12: usda("418"),
			models.Magnesium:  usda("304"),
			models.Zinc:       usda("309"),
			models.Calcium:    usda("301"),
			models.Selenium:   usda("317"),
			models.Copper:     usda("312"),
			models.Calories:   usda("208", "268"),
			models.Protein:    usda("203"),
			models.Carbs:      usda("205"),
			models.Fat:        usda("204"),
			models.Fiber:      usda("291"),
		},
	},
	Edamam: {
		idPath:      "food.foodId",
		namePaths:   []string{"food.label", "food.knownAs"},
		refQuantity: 100,
		refUnit:     "g",
		fields: map[models.Nutrient]fieldMapping{
			models.Folate:     edamam("FOLDFE", "mcg"),
			models.Choline:    edamam("CHOLN", "mg"),
			models.Iron:       edamam("FE", "mg"),
			models.VitaminD3:  edamam("VITD", "mcg"),
			models.DHA:        edamam("FADHA", "g"),
			models.VitaminA:   edamam("VITA_RAE", "mcg"),
			models.Iodine:     edamam("ID", "mcg"),
			models.VitaminB12: edamam("VITB12", "mcg"),
			models.Magnesium:  edamam("MG", "mg"),
			models.Zinc:       edamam("ZN", "mg"),
			models.Calcium:    edamam("CA", "mg"),
			models.Selenium:   edamam("SE", "mcg"),
			models.Copper:     edamam("CU", "mg"),
			models.Calories:   edamam("ENERC_KCAL", "kcal"),
			models.Protein:    edamam("PROCNT", "g"),
			models.Carbs:      edamam("CHOCDF", "g"),
			models.Fat:        edamam("FAT", "g"),
			models.Fiber:      edamam("FIBTG", "g"),
		},
	},
	Estimate: {
		idPath:      "id",
		namePaths:   []string{"name"},
		refQtyPath:  "reference_quantity",
		refUnitPath: "reference_unit",
		refQuantity: 1,
		refUnit:     "serving",
		fields:      estimateFields(),
	},
}

func estimateFields() map[models.Nutrient]fieldMapping {
	m := make(map[models.Nutrient]fieldMapping, len(models.TrackedNutrients))
	for _, n := range models.TrackedNutrients {
		m[n] = estimate(n)
	}
	return m
}

// Tags lists the registered schema tags.
func Tags() []SchemaTag {
	return []SchemaTag{OpenFoodFacts, USDA, Edamam, Estimate}
}
