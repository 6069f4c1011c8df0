// Package handlers provides HTTP request handlers for the meditrust API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/meditrust-api/identify"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/matching"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// Image extensions kept on stored uploads, anything else is stored without one
var uploadExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".bmp": {}, ".tif": {}, ".tiff": {}, ".webp": {},
}

// ImageIdentifier resolves a stored package photo
type ImageIdentifier interface {
	IdentifyImage(ctx context.Context, path string) (*identify.Identification, error)
}

// Dependencies groups the collaborators of the handler
type Dependencies struct {
	Catalog       interfaces.CatalogSource
	Resolver      *matching.Resolver
	Identifier    ImageIdentifier
	Validator     interfaces.DataValidator
	HealthChecker interfaces.HealthChecker
	UploadDir     string
	MaxUploadSize int64
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	catalog       interfaces.CatalogSource
	resolver      *matching.Resolver
	identifier    ImageIdentifier
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	uploadDir     string
	maxUploadSize int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(deps Dependencies) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		catalog:       deps.Catalog,
		resolver:      deps.Resolver,
		identifier:    deps.Identifier,
		validator:     deps.Validator,
		healthChecker: deps.HealthChecker,
		uploadDir:     deps.UploadDir,
		maxUploadSize: deps.MaxUploadSize,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// GenericMatchResponse is the body of a successful generic lookup
type GenericMatchResponse struct {
	SaltQuery   string  `json:"salt_query"`
	GenericName string  `json:"generic_name"`
	UnitSize    string  `json:"unit_size"`
	MRP         float64 `json:"mrp"`
	Score       float64 `json:"score"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// respondWithResolutionError maps pipeline errors to status codes
func (h *HTTPHandlerImpl) respondWithResolutionError(w http.ResponseWriter, err error) {
	var inputErr *matching.InputError
	var sourceErr *matching.DataSourceError

	switch {
	case errors.As(err, &inputErr):
		h.RespondWithError(w, http.StatusBadRequest, inputErr.Err.Error())
	case errors.As(err, &sourceErr):
		logging.Error("Catalog unavailable", "collection", sourceErr.Collection, "error", sourceErr.Err)
		h.RespondWithError(w, http.StatusServiceUnavailable, "Catalog temporarily unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(w, http.StatusServiceUnavailable, "Request timed out")
	default:
		logging.Error("Medicine resolution failed", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Medicine resolution failed")
	}
}

// ServeAllMedicines returns the whole medicine catalog
func (h *HTTPHandlerImpl) ServeAllMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.catalog.FetchMedicines(r.Context())
	if err != nil {
		h.respondWithResolutionError(w, err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, medicines)
}

// SearchMedicine returns the first medicine whose name contains the name query parameter
func (h *HTTPHandlerImpl) SearchMedicine(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.RespondWithError(w, http.StatusBadRequest, `Query parameter "name" is required`)
		return
	}

	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "name", name)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	medicines, err := h.catalog.FetchMedicines(r.Context())
	if err != nil {
		h.respondWithResolutionError(w, err)
		return
	}

	query := strings.ToLower(strings.TrimSpace(name))
	for i := range medicines {
		if strings.Contains(strings.ToLower(medicines[i].Name), query) {
			h.RespondWithJSON(w, http.StatusOK, medicines[i])
			return
		}
	}

	h.RespondWithError(w, http.StatusNotFound, "No medicine found matching the query")
}

// MatchGeneric returns the best generic alternative for the salt query parameter
func (h *HTTPHandlerImpl) MatchGeneric(w http.ResponseWriter, r *http.Request) {
	salt := r.URL.Query().Get("salt")
	if salt == "" {
		h.RespondWithError(w, http.StatusBadRequest, `Query parameter "salt" is required`)
		return
	}

	if err := h.validator.ValidateInput(salt); err != nil {
		logging.Warn("Unusual user input", "salt", salt)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := matching.NormalizeSaltComposition(salt)
	generic, score, found, err := h.resolver.ResolveGeneric(r.Context(), query)
	if err != nil {
		h.respondWithResolutionError(w, err)
		return
	}
	if !found {
		h.RespondWithError(w, http.StatusNotFound,
			fmt.Sprintf("No generic alternative above threshold %.2f", h.resolver.Threshold()))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, GenericMatchResponse{
		SaltQuery:   query,
		GenericName: generic.GenericName,
		UnitSize:    generic.UnitSize,
		MRP:         generic.MRP,
		Score:       score,
	})
}

// ScanMedicine identifies the medicine on an uploaded package photo (multipart field "image")
func (h *HTTPHandlerImpl) ScanMedicine(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.RespondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Image exceeds %d bytes", h.maxUploadSize))
			return
		}
		h.RespondWithError(w, http.StatusBadRequest, "Expected a multipart form upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer file.Close()

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		logging.Error("Failed to store upload", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to remove upload", "path", path, "error", err)
		}
	}()

	logging.Info("OCR file received", "filename", header.Filename, "size", header.Size)

	if err := h.validator.ValidateImage(path); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	identification, err := h.identifier.IdentifyImage(r.Context(), path)
	if err != nil {
		h.respondWithResolutionError(w, err)
		return
	}

	payload := identification.Result.Payload()
	if payload == nil {
		h.RespondWithError(w, http.StatusNotFound, "No matching medicine found from OCR")
		return
	}

	logging.Info("Medicine identified",
		"name", payload.Name,
		"state", identification.Result.State.String(),
		"generic_score", identification.Result.GenericScore,
	)
	h.RespondWithJSON(w, http.StatusOK, payload)
}

// saveUpload copies an upload to a fresh file of the upload directory
func (h *HTTPHandlerImpl) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := uploadExtensions[ext]; !ok {
		ext = ""
	}

	dst, err := os.CreateTemp(h.uploadDir, "scan-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}

	return dst.Name(), nil
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, details, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: status,
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
			"time": time.Now().UTC().Format(time.RFC3339),
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
