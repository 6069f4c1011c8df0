package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meilisearch/meilisearch-go"
)

// meiliPageSize is the number of documents requested per page
const meiliPageSize = 1000

var _ Store = (*MeiliStore)(nil)

// MeiliStore reads collections from Meilisearch indexes, one index per collection
type MeiliStore struct {
	client   meilisearch.ServiceManager
	pageSize int64
}

// NewMeiliStore creates a client for url and checks that the instance is healthy
func NewMeiliStore(ctx context.Context, url, apiKey string) (*MeiliStore, error) {
	if url == "" {
		return nil, errors.New("MEILI_URL is required for the meilisearch backend")
	}

	store := &MeiliStore{
		client:   meilisearch.New(url, meilisearch.WithAPIKey(apiKey)),
		pageSize: meiliPageSize,
	}
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// FetchAll pages through the documents of the index. The documents route is
// used rather than search, whose pagination stops at maxTotalHits.
// A catalog shorter than the total announced by the index is an error.
func (s *MeiliStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	index := s.client.Index(collection)

	var (
		docs  []Document
		total int64
	)
	for offset := int64(0); ; offset += s.pageSize {
		var res meilisearch.DocumentsResult
		err := index.GetDocumentsWithContext(ctx, &meilisearch.DocumentsQuery{
			Limit:  s.pageSize,
			Offset: offset,
		}, &res)
		if err != nil {
			var apiErr *meilisearch.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
				return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
			}
			return nil, fmt.Errorf("failed to fetch %s documents: %w", collection, err)
		}

		// Results are decoded lazily by the client, round-trip them to plain documents
		var page []Document
		b, err := json.Marshal(res.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s documents: %w", collection, err)
		}
		if err := json.Unmarshal(b, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s documents: %w", collection, err)
		}

		docs = append(docs, page...)
		total = res.Total
		if int64(len(page)) < s.pageSize || int64(len(docs)) >= total {
			break
		}
	}

	if int64(len(docs)) < total {
		return nil, fmt.Errorf("incomplete %s catalog: fetched %d of %d documents", collection, len(docs), total)
	}
	return docs, nil
}

// Ping checks that the Meilisearch instance is available within ctx
func (s *MeiliStore) Ping(ctx context.Context) error {
	health, err := s.client.HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("meilisearch health check failed: %w", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("meilisearch is not healthy: status %q", health.Status)
	}
	return nil
}

// Close is a no-op, the client holds no connection of its own
func (s *MeiliStore) Close() error {
	return nil
}
