package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/identify"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/matching"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

// TestDataFactory creates consistent test data across all tests
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

// CreateMedicine creates a single test medicine with realistic data
func (f *TestDataFactory) CreateMedicine(name, salt string) entities.CatalogRecord {
	return entities.CatalogRecord{
		Name:             name,
		SaltComposition:  salt,
		ManufacturerName: "Micro Labs Ltd",
		Description:      "Used for pain relief and fever",
		SideEffects:      "Nausea, Allergic reaction",
		Price:            30.91,
		PackSize:         "strip of 15 tablets",
	}
}

// CreateMedicines creates count distinct medicines
func (f *TestDataFactory) CreateMedicines(count int) []entities.CatalogRecord {
	medicines := make([]entities.CatalogRecord, count)
	for i := range count {
		medicines[i] = f.CreateMedicine(fmt.Sprintf("Medicine Test %d Tablet", i+1), fmt.Sprintf("Compound%d (%dmg)", i+1, (i+1)*10))
	}
	return medicines
}

// CreateCatalog returns a small medicine catalog and matching generics
func (f *TestDataFactory) CreateCatalog() ([]entities.CatalogRecord, []entities.GenericRecord) {
	medicines := []entities.CatalogRecord{
		f.CreateMedicine("Crocin Advance Tablet", "Paracetamol (500mg)"),
		f.CreateMedicine("Dolo 650 Tablet", "Paracetamol (650mg)"),
		f.CreateMedicine("Augmentin 625 Duo Tablet", "Amoxycillin (500mg) + Clavulanic Acid (125mg)"),
	}
	generics := []entities.GenericRecord{
		{GenericName: "Paracetamol 650mg Tablet", UnitSize: "15 Tablets", MRP: 18.5},
		{GenericName: "Amoxycillin 500mg + Clavulanic Acid 125mg Tablet", UnitSize: "10 Tablets", MRP: 96},
	}
	return medicines, generics
}

// ============================================================================
// MOCK IMPLEMENTATIONS
// ============================================================================

// MockCatalogSource implements interfaces.CatalogSource for testing
type MockCatalogSource struct {
	medicines []entities.CatalogRecord
	generics  []entities.GenericRecord
	err       error

	fetchMedicinesCalls int
	fetchGenericsCalls  int
}

func (m *MockCatalogSource) FetchMedicines(ctx context.Context) ([]entities.CatalogRecord, error) {
	m.fetchMedicinesCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.medicines, nil
}

func (m *MockCatalogSource) FetchGenerics(ctx context.Context) ([]entities.GenericRecord, error) {
	m.fetchGenericsCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.generics, nil
}

// MockDataValidator implements interfaces.DataValidator for testing
type MockDataValidator struct {
	inputError error
	imageError error

	validateInputCalled bool
	lastValidatedInput  string
	lastValidatedImage  string
}

func (m *MockDataValidator) ValidateInput(input string) error {
	m.validateInputCalled = true
	m.lastValidatedInput = input
	return m.inputError
}

func (m *MockDataValidator) ValidateImage(path string) error {
	m.lastValidatedImage = path
	return m.imageError
}

func (m *MockDataValidator) ReportDataQuality(medicines []entities.CatalogRecord, generics []entities.GenericRecord, unparsablePrices int) *interfaces.DataQualityReport {
	return &interfaces.DataQualityReport{UnparsablePrices: unparsablePrices}
}

// MockHealthChecker implements interfaces.HealthChecker for testing
type MockHealthChecker struct {
	status     string
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"medicines": 3, "generics": 2}, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
}

// MockIdentifier implements ImageIdentifier for testing
type MockIdentifier struct {
	identification *identify.Identification
	err            error

	lastPath    string
	fileExisted bool
}

func (m *MockIdentifier) IdentifyImage(ctx context.Context, path string) (*identify.Identification, error) {
	m.lastPath = path
	_, statErr := os.Stat(path)
	m.fileExisted = statErr == nil
	return m.identification, m.err
}

// ============================================================================
// HANDLER BUILDER
// ============================================================================

// testHandler bundles a handler with its mocks
type testHandler struct {
	*HTTPHandlerImpl
	catalog    *MockCatalogSource
	validator  *MockDataValidator
	identifier *MockIdentifier
}

func newTestHandler(t *testing.T) *testHandler {
	t.Helper()

	medicines, generics := NewTestDataFactory().CreateCatalog()
	catalog := &MockCatalogSource{medicines: medicines, generics: generics}
	validator := &MockDataValidator{}
	identifier := &MockIdentifier{}

	handler := NewHTTPHandler(Dependencies{
		Catalog:       catalog,
		Resolver:      matching.NewResolver(catalog, nil, 0),
		Identifier:    identifier,
		Validator:     validator,
		HealthChecker: &MockHealthChecker{status: "healthy", httpStatus: http.StatusOK},
		UploadDir:     t.TempDir(),
		MaxUploadSize: 1 << 20,
	}).(*HTTPHandlerImpl)

	return &testHandler{
		HTTPHandlerImpl: handler,
		catalog:         catalog,
		validator:       validator,
		identifier:      identifier,
	}
}

// ============================================================================
// HTTP HELPERS
// ============================================================================

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest executes an HTTP handler against a GET-style request
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// ExecuteUpload posts a multipart form with one file under field
func (h *HTTPTestHelper) ExecuteUpload(handler http.HandlerFunc, field, filename string, content []byte) *httptest.ResponseRecorder {
	h.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		h.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		h.t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		h.t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/medicine/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d (body: %s)", expectedStatus, resp.Code, resp.Body.String())
	}

	bodyStr := resp.Body.String()
	if bodyStr == "" {
		h.t.Error("Response body should not be empty")
	}

	if err := json.Unmarshal([]byte(bodyStr), target); err != nil {
		h.t.Errorf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts that response contains an error with expected status
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d (body: %s)", expectedStatus, resp.Code, resp.Body.String())
	}

	var errorResp map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &errorResp); err != nil {
		h.t.Errorf("Error response should be valid JSON, got error: %v", err)
	}

	for _, field := range []string{"error", "message", "code"} {
		if _, ok := errorResp[field]; !ok {
			h.t.Errorf("Error response should have %s field", field)
		}
	}
	if code, ok := errorResp["code"].(float64); ok && int(code) != expectedStatus {
		h.t.Errorf("Error code field mismatch: expected %d, got %v", expectedStatus, code)
	}
}
