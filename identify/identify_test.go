package identify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/matching"
	"github.com/giygas/meditrust-api/ocr"
)

// fakeEngine returns canned lines or an error
type fakeEngine struct {
	lines []ocr.Line
	err   error
	calls int
}

func (f *fakeEngine) Recognize(ctx context.Context, imagePath string) ([]ocr.Line, error) {
	f.calls++
	return f.lines, f.err
}

// mockCatalogSource serves fixed catalogs
type mockCatalogSource struct {
	medicines []entities.CatalogRecord
	generics  []entities.GenericRecord
	err       error
}

func (m *mockCatalogSource) FetchMedicines(ctx context.Context) ([]entities.CatalogRecord, error) {
	return m.medicines, m.err
}

func (m *mockCatalogSource) FetchGenerics(ctx context.Context) ([]entities.GenericRecord, error) {
	return m.generics, m.err
}

func testSource() *mockCatalogSource {
	return &mockCatalogSource{
		medicines: []entities.CatalogRecord{
			{Name: "Crocin Advance Tablet", SaltComposition: "Paracetamol (500mg)", ManufacturerName: "GSK"},
			{Name: "Dolo 650 Tablet", SaltComposition: "Paracetamol (650mg)", ManufacturerName: "Micro Labs Ltd", Price: 30.91},
		},
		generics: []entities.GenericRecord{
			{GenericName: "Paracetamol 650mg Tablet", UnitSize: "15 Tablets", MRP: 18.5},
		},
	}
}

func writeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strip.jpg")
	if err := os.WriteFile(path, []byte("not inspected by the fake engine"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func newTestIdentifier(engine ocr.Engine, source *mockCatalogSource) *Identifier {
	return NewIdentifier(engine, matching.NewResolver(source, nil, 0))
}

func TestIdentifyImageResolvesGeneric(t *testing.T) {
	engine := &fakeEngine{lines: []ocr.Line{
		{Text: "DOLO-650", Confidence: 0.9},
		{Text: "Paracetamol Tablets IP", Confidence: 0.8},
		{Text: "Micro Labs", Confidence: 0.7},
	}}

	id, err := newTestIdentifier(engine, testSource()).IdentifyImage(context.Background(), writeFile(t))
	if err != nil {
		t.Fatalf("IdentifyImage failed: %v", err)
	}

	if id.Result.State != matching.GenericResolved {
		t.Fatalf("expected GenericResolved, got %s", id.Result.State)
	}
	if id.Result.Original.Name != "Dolo 650 Tablet" {
		t.Errorf("expected Dolo 650 Tablet, got %q", id.Result.Original.Name)
	}
	if id.Result.Generic.GenericName != "Paracetamol 650mg Tablet" {
		t.Errorf("unexpected generic %q", id.Result.Generic.GenericName)
	}
	if id.RawText != "DOLO-650 Paracetamol Tablets IP Micro Labs" {
		t.Errorf("unexpected raw text %q", id.RawText)
	}
}

func TestIdentifyImageMissingFile(t *testing.T) {
	engine := &fakeEngine{}
	_, err := newTestIdentifier(engine, testSource()).IdentifyImage(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))

	var inputErr *matching.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
	if engine.calls != 0 {
		t.Errorf("OCR must not run for a missing file, got %d calls", engine.calls)
	}
}

func TestIdentifyImageDirectory(t *testing.T) {
	_, err := newTestIdentifier(&fakeEngine{}, testSource()).IdentifyImage(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotAFile) {
		t.Errorf("expected ErrNotAFile, got %v", err)
	}
}

func TestIdentifyImageNoOCRResults(t *testing.T) {
	source := testSource()
	source.err = errors.New("must not be called")

	id, err := newTestIdentifier(&fakeEngine{err: ocr.ErrNoResults}, source).IdentifyImage(context.Background(), writeFile(t))
	if err != nil {
		t.Fatalf("expected soft result, got error %v", err)
	}
	if id.Result.State != matching.NoMedicineFound {
		t.Errorf("expected NoMedicineFound, got %s", id.Result.State)
	}
	if id.Result.Payload() != nil {
		t.Error("expected empty payload")
	}
}

func TestIdentifyImageOCRFailure(t *testing.T) {
	ocrErr := errors.New("tesseract crashed")
	_, err := newTestIdentifier(&fakeEngine{err: ocrErr}, testSource()).IdentifyImage(context.Background(), writeFile(t))
	if !errors.Is(err, ocrErr) {
		t.Errorf("expected wrapped OCR error, got %v", err)
	}
	var inputErr *matching.InputError
	if errors.As(err, &inputErr) {
		t.Error("an OCR failure is not an input error")
	}
}

func TestIdentifyImageDataSourceError(t *testing.T) {
	source := testSource()
	source.err = &matching.DataSourceError{Collection: "medicines", Err: errors.New("connection refused")}

	engine := &fakeEngine{lines: []ocr.Line{{Text: "Dolo 650"}}}
	_, err := newTestIdentifier(engine, source).IdentifyImage(context.Background(), writeFile(t))

	var dsErr *matching.DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
}

func TestIdentifyImageUnknownMedicine(t *testing.T) {
	engine := &fakeEngine{lines: []ocr.Line{{Text: "Zzyzx Qwerty"}}}
	id, err := newTestIdentifier(engine, testSource()).IdentifyImage(context.Background(), writeFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Result.Found() {
		t.Errorf("expected no medicine, got %+v", id.Result.Original)
	}
}
