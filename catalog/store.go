// Package catalog loads the medicine and generic catalogs from a document store
// (Postgres, Meilisearch or exported files) and decodes them into entities.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Document is one raw catalog row, keyed by field name
type Document = map[string]any

// Store reads whole collections from a catalog backend
type Store interface {
	FetchAll(ctx context.Context, collection string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// Supported backends
const (
	BackendPostgres    = "postgres"
	BackendMeilisearch = "meilisearch"
	BackendFile        = "file"
)

// ErrCollectionNotFound is returned when a collection does not exist in the store
var ErrCollectionNotFound = errors.New("collection not found")

// Options selects and configures the store opened by Open
type Options struct {
	Backend     string
	DatabaseURL string
	MeiliURL    string
	MeiliAPIKey string
	Dir         string
}

// Open creates the store for the configured backend. Network backends are
// pinged before being returned so that an unreachable store fails at startup.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)

	switch strings.ToLower(opts.Backend) {
	case BackendPostgres:
		store, err = NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendMeilisearch:
		store, err = NewMeiliStore(ctx, opts.MeiliURL, opts.MeiliAPIKey)
	case BackendFile:
		store, err = NewFileStore(opts.Dir)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s catalog store: %w", opts.Backend, err)
	}

	return store, nil
}
