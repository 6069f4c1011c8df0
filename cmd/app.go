package cmd

import (
	"context"
	"fmt"

	"github.com/giygas/meditrust-api/catalog"
	"github.com/giygas/meditrust-api/config"
	"github.com/giygas/meditrust-api/data"
	"github.com/giygas/meditrust-api/identify"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/matching"
	"github.com/giygas/meditrust-api/ocr"
	"github.com/giygas/meditrust-api/ocr/tesseract"
	"github.com/giygas/meditrust-api/validation"
)

// newOCREngine builds the OCR engine, replaced in tests
var newOCREngine = func(languages []string) ocr.Engine {
	return tesseract.NewEngine(languages...)
}

// pipeline wires the catalog store to the resolver and the identifier
type pipeline struct {
	store      catalog.Store
	source     *catalog.Source
	container  *data.DataContainer // nil without a snapshot
	catalog    interfaces.CatalogSource
	validator  interfaces.DataValidator
	resolver   *matching.Resolver
	identifier *identify.Identifier
}

// buildPipeline opens the configured store. With withSnapshot set it also
// creates the in-memory snapshot, which the caller must keep loaded, and
// resolutions read it when CATALOG_CACHE is on.
func buildPipeline(ctx context.Context, cfg *config.Config, withSnapshot bool) (*pipeline, error) {
	store, err := catalog.Open(ctx, catalog.Options{
		Backend:     cfg.CatalogBackend,
		DatabaseURL: cfg.DatabaseURL,
		MeiliURL:    cfg.MeiliURL,
		MeiliAPIKey: cfg.MeiliAPIKey,
		Dir:         cfg.CatalogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	p := &pipeline{
		store:     store,
		source:    catalog.NewSource(store, cfg.MedicineCollection, cfg.GenericCollection, cfg.FetchTimeout),
		validator: validation.NewDataValidator(cfg.MaxUploadSize),
	}
	p.catalog = p.source

	if withSnapshot {
		p.container = data.NewDataContainer(cfg.MedicineCollection, cfg.GenericCollection)
		if cfg.CatalogCache {
			p.catalog = p.container
		}
	}

	p.resolver = matching.NewResolver(p.catalog, matching.NewCatalogMatcher(nil), cfg.GenericThreshold)
	p.identifier = identify.NewIdentifier(newOCREngine(cfg.OCRLanguages), p.resolver)

	logging.Debug("Pipeline ready",
		"backend", cfg.CatalogBackend,
		"cached", p.container != nil && cfg.CatalogCache,
		"threshold", p.resolver.Threshold(),
	)
	return p, nil
}

// Close releases the catalog store
func (p *pipeline) Close() error {
	return p.store.Close()
}
