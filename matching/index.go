package matching

import (
	"slices"

	"github.com/giygas/meditrust-api/entities"
)

// gramSize is the length of the character n-grams indexed per record. Tokens
// produced by Tokenize are always longer than minTokenLength, so they contain
// at least one full gram.
const gramSize = minTokenLength + 1

// MedicineIndex is an inverted index from character n-grams of the cleaned
// medicine fields to record positions. It shortlists the records that may
// contain a token before scoring them exactly like the linear scan does, so
// scores and tie-breaks are identical to CatalogMatcher.FindBestMedicine.
type MedicineIndex struct {
	records []entities.CatalogRecord
	fields  []medicineFields
	grams   map[string][]int
}

// NewMedicineIndex builds the index over a catalog snapshot
func NewMedicineIndex(records []entities.CatalogRecord) *MedicineIndex {
	idx := &MedicineIndex{
		records: records,
		fields:  make([]medicineFields, len(records)),
		grams:   make(map[string][]int),
	}

	for i := range records {
		f := newMedicineFields(&records[i])
		idx.fields[i] = f

		seen := make(map[string]struct{})
		for _, field := range []string{f.name, f.salt, f.manufacturer} {
			for start := 0; start+gramSize <= len(field); start++ {
				gram := field[start : start+gramSize]
				if _, ok := seen[gram]; ok {
					continue
				}
				seen[gram] = struct{}{}
				// Positions are appended in increasing order
				idx.grams[gram] = append(idx.grams[gram], i)
			}
		}
	}

	return idx
}

// Len returns the number of indexed records
func (idx *MedicineIndex) Len() int {
	return len(idx.records)
}

// Records returns the indexed catalog
func (idx *MedicineIndex) Records() []entities.CatalogRecord {
	return idx.records
}

// FindBest returns the best qualifying record for tokens, with the same
// semantics as CatalogMatcher.FindBestMedicine over the indexed catalog.
func (idx *MedicineIndex) FindBest(tokens []string) (best entities.CatalogRecord, ok bool) {
	candidates, shortlisted := idx.candidates(tokens)
	if !shortlisted {
		candidates = make([]int, len(idx.records))
		for i := range candidates {
			candidates[i] = i
		}
	}

	bestScore := -1
	for _, i := range candidates {
		score, qualifies := idx.fields[i].score(tokens)
		if qualifies && score > bestScore {
			best, bestScore, ok = idx.records[i], score, true
		}
	}
	return best, ok
}

// candidates returns the sorted positions of records sharing a gram with any
// token. shortlisted is false when a token is too short to be looked up, in
// which case every record has to be scored.
func (idx *MedicineIndex) candidates(tokens []string) ([]int, bool) {
	set := make(map[int]struct{})
	for _, token := range tokens {
		if len(token) < gramSize {
			return nil, false
		}
		for _, pos := range idx.grams[token[:gramSize]] {
			set[pos] = struct{}{}
		}
	}

	positions := make([]int, 0, len(set))
	for pos := range set {
		positions = append(positions, pos)
	}
	slices.Sort(positions)

	return positions, true
}
