package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giygas/meditrust-api/logging"
	"github.com/lib/pq"
)

// undefinedTable is the Postgres error code for a missing relation
const undefinedTable = "42P01"

var _ Store = (*PostgresStore)(nil)

// PostgresStore reads collections from Postgres tables, one table per collection
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings a connection pool for dbURL
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres backend")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// FetchAll returns every row of the collection table, columns becoming document fields
func (s *PostgresStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	query := "SELECT * FROM " + pq.QuoteIdentifier(collection)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("Failed to close rows", "collection", collection, "error", err)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", collection, err)
	}

	var docs []Document
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}

		doc := make(Document, len(columns))
		for i, column := range columns {
			doc[column] = columnValue(values[i])
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}

	return docs, nil
}

// columnValue converts driver values to document values. Text and numeric
// columns come back as []byte and are kept as strings.
func columnValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Ping checks that the database is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
