// Package data provides thread-safe in-memory storage of the catalogs.
// The DataContainer swaps whole snapshots atomically so a refresh never
// exposes a half-updated catalog to a running resolution.
package data

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/matching"
)

// Compile-time checks to ensure DataContainer implements DataStore and serves indexes
var (
	_ interfaces.DataStore         = (*DataContainer)(nil)
	_ matching.MedicineIndexSource = (*DataContainer)(nil)
)

// ErrNotLoaded is returned by the fetch methods before the first successful load
var ErrNotLoaded = errors.New("catalog snapshot not loaded yet")

// snapshot groups everything replaced by a single update
type snapshot struct {
	medicines []entities.CatalogRecord
	generics  []entities.GenericRecord
	index     *matching.MedicineIndex
	report    *interfaces.DataQualityReport
	updated   time.Time
}

// DataContainer holds the catalogs behind an atomic pointer for zero-downtime updates
type DataContainer struct {
	current            atomic.Pointer[snapshot]
	updating           atomic.Bool
	serverStartTime    atomic.Value // time.Time
	medicineCollection string
	genericCollection  string
}

// NewDataContainer creates an empty container. The collection names are only
// used to label errors.
func NewDataContainer(medicineCollection, genericCollection string) *DataContainer {
	dc := &DataContainer{
		medicineCollection: medicineCollection,
		genericCollection:  genericCollection,
	}
	dc.current.Store(&snapshot{
		medicines: make([]entities.CatalogRecord, 0),
		generics:  make([]entities.GenericRecord, 0),
		index:     matching.NewMedicineIndex(nil),
		report:    &interfaces.DataQualityReport{},
	})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func (dc *DataContainer) load() *snapshot {
	return dc.current.Load()
}

// Loaded reports whether the catalogs have been loaded at least once
func (dc *DataContainer) Loaded() bool {
	return !dc.load().updated.IsZero()
}

// GetMedicines returns the medicine catalog
func (dc *DataContainer) GetMedicines() []entities.CatalogRecord {
	return dc.load().medicines
}

// GetGenerics returns the generic catalog
func (dc *DataContainer) GetGenerics() []entities.GenericRecord {
	return dc.load().generics
}

// GetDataQualityReport returns the report computed for the current snapshot
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	return dc.load().report
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	return dc.load().updated
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// FetchMedicines implements CatalogSource over the current snapshot
func (dc *DataContainer) FetchMedicines(ctx context.Context) ([]entities.CatalogRecord, error) {
	if !dc.Loaded() {
		return nil, &matching.DataSourceError{Collection: dc.medicineCollection, Err: ErrNotLoaded}
	}
	return dc.GetMedicines(), nil
}

// FetchGenerics implements CatalogSource over the current snapshot
func (dc *DataContainer) FetchGenerics(ctx context.Context) ([]entities.GenericRecord, error) {
	if !dc.Loaded() {
		return nil, &matching.DataSourceError{Collection: dc.genericCollection, Err: ErrNotLoaded}
	}
	return dc.GetGenerics(), nil
}

// FetchMedicineIndex returns the index built for the current medicine catalog
func (dc *DataContainer) FetchMedicineIndex(ctx context.Context) (*matching.MedicineIndex, error) {
	if !dc.Loaded() {
		return nil, &matching.DataSourceError{Collection: dc.medicineCollection, Err: ErrNotLoaded}
	}
	return dc.load().index, nil
}

// UpdateData builds the medicine index and atomically replaces the snapshot
func (dc *DataContainer) UpdateData(medicines []entities.CatalogRecord, generics []entities.GenericRecord, report *interfaces.DataQualityReport) {
	if medicines == nil {
		medicines = make([]entities.CatalogRecord, 0)
	}
	if generics == nil {
		generics = make([]entities.GenericRecord, 0)
	}
	if report == nil {
		report = &interfaces.DataQualityReport{}
	}

	// Atomic swap (zero downtime replacement)
	dc.current.Store(&snapshot{
		medicines: medicines,
		generics:  generics,
		index:     matching.NewMedicineIndex(medicines),
		report:    report,
		updated:   time.Now(),
	})
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
