package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var _ Store = (*FileStore)(nil)

// FileStore reads collections exported as <dir>/<collection>.json (an array of
// objects) or <dir>/<collection>.csv (with a header row).
type FileStore struct {
	dir string
}

// NewFileStore creates a store over dir, which must exist
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("CATALOG_DIR is required for the file backend")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory %s is not a directory", dir)
	}

	return &FileStore{dir: dir}, nil
}

// FetchAll reads the JSON export of the collection, falling back to the CSV export
func (s *FileStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(filepath.Clean(collection))
	if name != collection || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid collection name: %s", collection)
	}

	jsonPath := filepath.Join(s.dir, name+".json")
	if content, err := os.ReadFile(jsonPath); err == nil {
		return decodeJSONDocuments(content, jsonPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	csvPath := filepath.Join(s.dir, name+".csv")
	content, err := os.ReadFile(csvPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", csvPath, err)
	}

	return decodeCSVDocuments(content, csvPath)
}

func decodeJSONDocuments(content []byte, path string) ([]Document, error) {
	var docs []Document
	if err := json.Unmarshal(content, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return docs, nil
}

func decodeCSVDocuments(content []byte, path string) ([]Document, error) {
	// Spreadsheet exports are not always UTF-8, read the content first
	var reader io.Reader
	if utf8.Valid(content) {
		reader = bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf")))
	} else {
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(content))
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var docs []Document
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc := make(Document, len(header))
		for i, column := range header {
			if i < len(record) {
				doc[column] = record[i]
			}
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Ping checks that the catalog directory is still readable
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.ReadDir(s.dir); err != nil {
		return fmt.Errorf("catalog directory unreadable: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
