package matching

import (
	"regexp"
	"strconv"

	"github.com/giygas/meditrust-api/logging"
)

// ingredientDoseRegex matches "<ingredient> <quantity><unit>", e.g. "paracetamol 500mg"
// or "caffeine 0.1 g". The unit is optional and defaults to milligrams.
var ingredientDoseRegex = regexp.MustCompile(`([a-z]+)\s*(\d+\.?\d*)\s*(mg|ml|g|mcg)?`)

// IngredientMap maps a lowercase ingredient name to its dosage in milligrams
type IngredientMap map[string]float64

// ExtractIngredients returns the normalized text and the ingredient doses found in it.
// The scan runs before punctuation is stripped so decimal quantities survive.
// When an ingredient appears twice the last dose wins.
// It never fails: text without any dose yields an empty map.
func ExtractIngredients(text string) (string, IngredientMap) {
	ingredients := make(IngredientMap)

	stripped := stripPackagingWords(text)
	for _, match := range ingredientDoseRegex.FindAllStringSubmatch(stripped, -1) {
		dose, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			logging.Debug("Unparsable dosage, defaulting to 0", "ingredient", match[1], "dosage", match[2])
			dose = 0
		}
		ingredients[match[1]] = toMilligrams(dose, match[3])
	}

	return Normalize(text), ingredients
}

// toMilligrams converts a quantity to the common milligram base
func toMilligrams(quantity float64, unit string) float64 {
	switch unit {
	case "g":
		return quantity * 1000
	case "mcg":
		return quantity / 1000
	default: // mg, ml or no unit
		return quantity
	}
}
