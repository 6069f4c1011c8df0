package matching

import (
	"strings"

	"github.com/giygas/meditrust-api/entities"
)

// DefaultThreshold is the minimum similarity for a generic to be proposed
const DefaultThreshold = 0.5

// Field weights used when scoring OCR tokens against a medicine record
const (
	nameMatchPoints         = 3
	saltMatchPoints         = 2
	manufacturerMatchPoints = 1
)

// CatalogMatcher looks up the best records of the medicine and generic catalogs
type CatalogMatcher struct {
	scorer Scorer
}

// NewCatalogMatcher creates a matcher using the given scorer for generic lookups
func NewCatalogMatcher(scorer Scorer) *CatalogMatcher {
	if scorer == nil {
		scorer = SimilarityScorer{}
	}
	return &CatalogMatcher{scorer: scorer}
}

// medicineFields holds the cleaned fields of a record used for token matching
type medicineFields struct {
	name         string
	salt         string
	manufacturer string
}

func newMedicineFields(record *entities.CatalogRecord) medicineFields {
	return medicineFields{
		name:         cleanField(record.Name),
		salt:         cleanField(record.SaltComposition),
		manufacturer: cleanField(record.ManufacturerName),
	}
}

// score sums, for every token, the points of the most important field containing it.
// A record qualifies when at least one token is found in any field.
func (f medicineFields) score(tokens []string) (int, bool) {
	score := 0
	qualifies := false
	for _, token := range tokens {
		switch {
		case strings.Contains(f.name, token):
			score += nameMatchPoints
		case strings.Contains(f.salt, token):
			score += saltMatchPoints
		case strings.Contains(f.manufacturer, token):
			score += manufacturerMatchPoints
		default:
			continue
		}
		qualifies = true
	}
	return score, qualifies
}

// FindBestMedicine returns the qualifying record with the highest score.
// Ties go to the record seen first. ok is false when no record qualifies.
func (m *CatalogMatcher) FindBestMedicine(tokens []string, catalog []entities.CatalogRecord) (best entities.CatalogRecord, ok bool) {
	bestScore := -1
	for i := range catalog {
		score, qualifies := newMedicineFields(&catalog[i]).score(tokens)
		if qualifies && score > bestScore {
			best, bestScore, ok = catalog[i], score, true
		}
	}
	return best, ok
}

// FindBestGeneric returns the generic most similar to query, with its score.
// Records without a generic name are skipped, ties go to the record seen first,
// and the best record is only accepted when its score reaches threshold.
func (m *CatalogMatcher) FindBestGeneric(query string, catalog []entities.GenericRecord, threshold float64) (entities.GenericRecord, float64, bool) {
	var best entities.GenericRecord
	bestScore := -1.0
	found := false

	for i := range catalog {
		if catalog[i].GenericName == "" {
			continue
		}
		score := m.scorer.Similarity(query, catalog[i].GenericName)
		if score > bestScore {
			best, bestScore, found = catalog[i], score, true
		}
	}

	if !found || bestScore < threshold {
		return entities.GenericRecord{}, max(bestScore, 0), false
	}
	return best, bestScore, true
}
