// Package interfaces defines core abstractions for the meditrust API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/meditrust-api/entities"
)

// DataQualityReport provides a summary of data quality issues found in the catalogs
type DataQualityReport struct {
	MedicinesWithoutSalt      int
	MedicinesWithoutSaltNames []string // First 10 names
	GenericsWithoutName       int
	DuplicateMedicineNames    []string
	UnparsablePrices          int // Price or MRP fields that defaulted to 0
}

// CatalogSource provides read-only snapshots of the medicine and generic catalogs.
// Implementations fail fast when the underlying store cannot be reached.
type CatalogSource interface {
	FetchMedicines(ctx context.Context) ([]entities.CatalogRecord, error)
	FetchGenerics(ctx context.Context) ([]entities.GenericRecord, error)
}

// DataStore defines the contract for the in-memory catalog snapshot.
// It provides thread-safe access with atomic operations for zero-downtime updates.
type DataStore interface {
	CatalogSource

	// Data retrieval methods
	GetMedicines() []entities.CatalogRecord
	GetGenerics() []entities.GenericRecord
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time
	GetDataQualityReport() *DataQualityReport

	// Data update methods
	UpdateData(medicines []entities.CatalogRecord, generics []entities.GenericRecord, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated catalog refreshes and staleness checks.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	ScanMedicine(w http.ResponseWriter, r *http.Request)
	SearchMedicine(w http.ResponseWriter, r *http.Request)
	ServeAllMedicines(w http.ResponseWriter, r *http.Request)
	MatchGeneric(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog refresh
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
// It ensures data integrity and rejects unsafe user input.
type DataValidator interface {
	// ValidateInput validates user search strings
	ValidateInput(input string) error

	// ValidateImage checks that a file is a decodable image within limits
	ValidateImage(path string) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(medicines []entities.CatalogRecord, generics []entities.GenericRecord, unparsablePrices int) *DataQualityReport
}
