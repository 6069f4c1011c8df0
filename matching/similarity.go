package matching

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

// Weights of the composite score
const (
	nameWeight       = 0.3
	ingredientWeight = 0.7

	ingredientOverlapWeight = 0.7
	doseAgreementWeight     = 0.3
)

var numericWordRegex = regexp.MustCompile(`^\d+$`)

// Scorer computes a similarity in [0, 1] between two medicine-like strings
type Scorer interface {
	Similarity(a, b string) float64
}

// Compile-time check to ensure SimilarityScorer implements Scorer
var _ Scorer = SimilarityScorer{}

// SimilarityScorer combines word overlap and ingredient dose agreement.
// Ingredient agreement dominates whenever both strings share an ingredient;
// plain name overlap is the fallback.
type SimilarityScorer struct{}

// Similarity implements Scorer
func (SimilarityScorer) Similarity(a, b string) float64 {
	cleanA, ingredientsA := ExtractIngredients(a)
	cleanB, ingredientsB := ExtractIngredients(b)

	nameSim := jaccard(nameWords(cleanA), nameWords(cleanB))
	ingredientSim := ingredientSimilarity(ingredientsA, ingredientsB)

	if ingredientSim > 0 {
		return clampUnit(nameWeight*nameSim + ingredientWeight*ingredientSim)
	}
	return nameSim
}

// nameWords returns the set of non numeric words of a normalized string
func nameWords(clean string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(clean) {
		if numericWordRegex.MatchString(word) {
			continue
		}
		words[word] = struct{}{}
	}
	return words
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

func ingredientSimilarity(a, b IngredientMap) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var common []string
	for name := range a {
		if _, ok := b[name]; ok {
			common = append(common, name)
		}
	}
	if len(common) == 0 {
		return 0
	}
	union := len(a) + len(b) - len(common)

	// Fixed summation order keeps scores bit-for-bit reproducible
	slices.Sort(common)

	var doseTotal float64
	for _, name := range common {
		doseTotal += doseSimilarity(a[name], b[name])
	}

	overlap := float64(len(common)) / float64(union)
	avgDose := doseTotal / float64(len(common))

	return ingredientOverlapWeight*overlap + doseAgreementWeight*avgDose
}

// doseSimilarity decays linearly with the relative dose difference.
// Two zero doses are considered identical.
func doseSimilarity(a, b float64) float64 {
	maxDose := math.Max(a, b)
	if maxDose == 0 {
		return 1
	}
	relativeDiff := math.Abs(a-b) / maxDose
	return math.Max(0, 1-math.Min(1, relativeDiff))
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
