package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestFileStoreJSON(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "medicines.json", []byte(`[
		{"name": "Dolo 650 Tablet", "salt_composition": "Paracetamol (650mg)", "price(₹)": 30.91},
		{"name": "Azithral 500 Tablet", "salt_composition": "Azithromycin (500mg)"}
	]`))

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	docs, err := store.FetchAll(context.Background(), "medicines")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0]["name"] != "Dolo 650 Tablet" || docs[0]["price(₹)"] != 30.91 {
		t.Errorf("unexpected first document %v", docs[0])
	}
}

func TestFileStoreCSV(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "generic_med.csv", []byte("\xef\xbb\xbfgeneric_name,unit_size,mrp\nParacetamol 650mg,15 Tablets,14\n\"Amoxycillin 500mg, Clavulanic Acid 125mg\",10 Tablets,98.5\n"))

	store, _ := NewFileStore(dir)
	docs, err := store.FetchAll(context.Background(), "generic_med")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[1]["generic_name"] != "Amoxycillin 500mg, Clavulanic Acid 125mg" || docs[1]["mrp"] != "98.5" {
		t.Errorf("unexpected second document %v", docs[1])
	}
}

func TestFileStoreCSVLatin1(t *testing.T) {
	dir := t.TempDir()
	// "Crème" encoded in ISO-8859-1
	writeCatalogFile(t, dir, "medicines.csv", []byte("name,manufacturer_name\nCr\xe8me Cortisone,Labo\n"))

	store, _ := NewFileStore(dir)
	docs, err := store.FetchAll(context.Background(), "medicines")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(docs) != 1 || docs[0]["name"] != "Crème Cortisone" {
		t.Errorf("expected decoded latin-1 name, got %v", docs)
	}
}

func TestFileStoreMissingCollection(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())

	_, err := store.FetchAll(context.Background(), "medicines")
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())

	for _, name := range []string{"../medicines", "a/b", ".."} {
		if _, err := store.FetchAll(context.Background(), name); err == nil {
			t.Errorf("expected error for collection %q", name)
		}
	}
}

func TestFileStoreInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "medicines.json", []byte(`{"name": "not an array"}`))

	store, _ := NewFileStore(dir)
	if _, err := store.FetchAll(context.Background(), "medicines"); err == nil {
		t.Error("expected a parse error")
	}
}

func TestNewFileStoreErrors(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty directory")
	}
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}

	file := filepath.Join(t.TempDir(), "file.json")
	writeCatalogFile(t, filepath.Dir(file), "file.json", []byte("[]"))
	if _, err := NewFileStore(file); err == nil {
		t.Error("expected error when path is a file")
	}
}

func TestOpenFileBackend(t *testing.T) {
	store, err := Open(context.Background(), Options{Backend: "FILE", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []Options{
		{Backend: "mongodb"},
		{Backend: BackendPostgres},
		{Backend: BackendMeilisearch},
		{Backend: BackendFile},
	}

	for _, opts := range tests {
		if _, err := Open(context.Background(), opts); err == nil {
			t.Errorf("Open(%+v) expected error", opts)
		}
	}
}

func TestColumnValue(t *testing.T) {
	if got := columnValue([]byte("30.91")); got != "30.91" {
		t.Errorf("columnValue([]byte) = %v, want string", got)
	}
	if got := columnValue(int64(5)); got != int64(5) {
		t.Errorf("columnValue(int64) = %v", got)
	}
	if got := columnValue(nil); got != nil {
		t.Errorf("columnValue(nil) = %v", got)
	}
}
