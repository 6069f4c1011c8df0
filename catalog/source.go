package catalog

import (
	"context"
	"time"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/matching"
)

// Compile-time check to ensure Source implements CatalogSource
var _ interfaces.CatalogSource = (*Source)(nil)

// Snapshot is a full decoded copy of both catalogs
type Snapshot struct {
	Medicines        []entities.CatalogRecord
	Generics         []entities.GenericRecord
	UnparsablePrices int
}

// Source reads the catalogs straight from a store on every call
type Source struct {
	store              Store
	medicineCollection string
	genericCollection  string
	timeout            time.Duration
}

// NewSource creates a source over store. A zero timeout disables the per-fetch deadline.
func NewSource(store Store, medicineCollection, genericCollection string, timeout time.Duration) *Source {
	return &Source{
		store:              store,
		medicineCollection: medicineCollection,
		genericCollection:  genericCollection,
		timeout:            timeout,
	}
}

// FetchMedicines implements CatalogSource
func (s *Source) FetchMedicines(ctx context.Context) ([]entities.CatalogRecord, error) {
	docs, err := s.fetch(ctx, s.medicineCollection)
	if err != nil {
		return nil, err
	}
	var d Decoder
	return d.DecodeMedicines(docs), nil
}

// FetchGenerics implements CatalogSource
func (s *Source) FetchGenerics(ctx context.Context) ([]entities.GenericRecord, error) {
	docs, err := s.fetch(ctx, s.genericCollection)
	if err != nil {
		return nil, err
	}
	var d Decoder
	return d.DecodeGenerics(docs), nil
}

// FetchSnapshot reads both catalogs. It fails if either one cannot be fetched.
func (s *Source) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	medicineDocs, err := s.fetch(ctx, s.medicineCollection)
	if err != nil {
		return nil, err
	}
	genericDocs, err := s.fetch(ctx, s.genericCollection)
	if err != nil {
		return nil, err
	}

	var d Decoder
	snapshot := &Snapshot{
		Medicines: d.DecodeMedicines(medicineDocs),
		Generics:  d.DecodeGenerics(genericDocs),
	}
	snapshot.UnparsablePrices = d.UnparsablePrices

	return snapshot, nil
}

// Ping checks the underlying store
func (s *Source) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return &matching.DataSourceError{Collection: s.medicineCollection, Err: err}
	}
	return nil
}

func (s *Source) fetch(ctx context.Context, collection string) ([]Document, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := s.store.FetchAll(ctx, collection)
	if err != nil {
		logging.Error("Catalog fetch failed", "collection", collection, "error", err)
		return nil, &matching.DataSourceError{Collection: collection, Err: err}
	}

	if len(docs) == 0 {
		logging.Warn("Catalog collection is empty", "collection", collection)
	}
	logging.Debug("Catalog fetched", "collection", collection, "documents", len(docs), "duration", time.Since(start))

	return docs, nil
}
