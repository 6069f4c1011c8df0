package matching

import (
	"context"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
)

// ResolutionState is the state reached by a resolution
type ResolutionState int

const (
	AwaitingOcrTokens ResolutionState = iota
	MedicineResolved
	GenericResolved
	NoMedicineFound
	NoGenericFound
)

func (s ResolutionState) String() string {
	switch s {
	case AwaitingOcrTokens:
		return "awaiting_ocr_tokens"
	case MedicineResolved:
		return "medicine_resolved"
	case GenericResolved:
		return "generic_resolved"
	case NoMedicineFound:
		return "no_medicine_found"
	case NoGenericFound:
		return "no_generic_found"
	default:
		return "unknown"
	}
}

// MedicineIndexSource is implemented by catalog sources able to serve a
// prebuilt MedicineIndex. The resolver uses it instead of a linear scan.
type MedicineIndexSource interface {
	FetchMedicineIndex(ctx context.Context) (*MedicineIndex, error)
}

// Resolver runs the full pipeline: OCR tokens -> medicine -> generic alternative
type Resolver struct {
	source    interfaces.CatalogSource
	matcher   *CatalogMatcher
	threshold float64
}

// NewResolver creates a resolver reading its catalogs from source.
// A non positive threshold falls back to DefaultThreshold.
func NewResolver(source interfaces.CatalogSource, matcher *CatalogMatcher, threshold float64) *Resolver {
	if matcher == nil {
		matcher = NewCatalogMatcher(nil)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{
		source:    source,
		matcher:   matcher,
		threshold: threshold,
	}
}

// Threshold returns the minimum generic similarity accepted by the resolver
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve identifies the medicine matching tokens and its best generic alternative.
// Only catalog failures are returned as errors; missing matches are reported
// through the result state.
func (r *Resolver) Resolve(ctx context.Context, tokens []string) (MatchResult, error) {
	result := MatchResult{State: AwaitingOcrTokens}

	if len(tokens) == 0 {
		logging.Debug("No extracted words to match")
		result.State = NoMedicineFound
		return result, nil
	}

	medicine, found, err := r.findMedicine(ctx, tokens)
	if err != nil {
		return result, err
	}
	if !found {
		logging.Debug("No medicine matched the extracted words", "tokens", tokens)
		result.State = NoMedicineFound
		return result, nil
	}

	result.Original = &medicine
	result.State = MedicineResolved
	result.SaltQuery = NormalizeSaltComposition(medicine.SaltComposition)
	logging.Debug("Medicine resolved", "name", medicine.Name, "salt_query", result.SaltQuery)

	generic, score, found, err := r.ResolveGeneric(ctx, result.SaltQuery)
	if err != nil {
		return result, err
	}
	result.GenericScore = score
	if !found {
		logging.Debug("No generic above threshold", "salt_query", result.SaltQuery, "best_score", score)
		result.State = NoGenericFound
		return result, nil
	}

	result.Generic = &generic
	result.State = GenericResolved
	return result, nil
}

// ResolveGeneric returns the best generic alternative for a salt composition
func (r *Resolver) ResolveGeneric(ctx context.Context, salt string) (entities.GenericRecord, float64, bool, error) {
	generics, err := r.source.FetchGenerics(ctx)
	if err != nil {
		return entities.GenericRecord{}, 0, false, err
	}
	if len(generics) == 0 {
		logging.Warn("Generic catalog is empty, no alternative can be proposed")
	}

	generic, score, found := r.matcher.FindBestGeneric(salt, generics, r.threshold)
	return generic, score, found, nil
}

func (r *Resolver) findMedicine(ctx context.Context, tokens []string) (entities.CatalogRecord, bool, error) {
	if indexed, ok := r.source.(MedicineIndexSource); ok {
		idx, err := indexed.FetchMedicineIndex(ctx)
		if err != nil {
			return entities.CatalogRecord{}, false, err
		}
		if idx.Len() == 0 {
			logging.Warn("Medicine catalog is empty, nothing can be matched")
		}
		medicine, found := idx.FindBest(tokens)
		return medicine, found, nil
	}

	medicines, err := r.source.FetchMedicines(ctx)
	if err != nil {
		return entities.CatalogRecord{}, false, err
	}
	if len(medicines) == 0 {
		logging.Warn("Medicine catalog is empty, nothing can be matched")
	}

	medicine, found := r.matcher.FindBestMedicine(tokens, medicines)
	return medicine, found, nil
}
