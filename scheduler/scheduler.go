// Package scheduler refreshes the in-memory catalog snapshot on a daily schedule
// and warns when the snapshot grows stale.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/giygas/meditrust-api/catalog"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// SnapshotFetcher reads both catalogs in one go
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*catalog.Snapshot, error)
}

// Scheduler handles catalog refreshes and staleness monitoring
type Scheduler struct {
	dataStore     interfaces.DataStore
	source        SnapshotFetcher
	validator     interfaces.DataValidator
	refreshTimes  []string
	staleAfter    time.Duration
	checkInterval time.Duration
	scheduler     *gocron.Scheduler
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewScheduler creates a scheduler refreshing dataStore from source at the given
// HH:MM times, local time.
func NewScheduler(dataStore interfaces.DataStore, source SnapshotFetcher, validator interfaces.DataValidator, refreshTimes []string) *Scheduler {
	return &Scheduler{
		dataStore:     dataStore,
		source:        source,
		validator:     validator,
		refreshTimes:  refreshTimes,
		staleAfter:    staleThreshold(refreshTimes),
		checkInterval: time.Hour,
		scheduler:     gocron.NewScheduler(time.Local),
		stop:          make(chan struct{}),
	}
}

// staleThreshold is the longest gap between two refreshes plus an hour of slack
func staleThreshold(refreshTimes []string) time.Duration {
	minutes := make([]int, 0, len(refreshTimes))
	for _, rt := range refreshTimes {
		t, err := time.Parse("15:04", strings.TrimSpace(rt))
		if err != nil {
			continue
		}
		minutes = append(minutes, t.Hour()*60+t.Minute())
	}
	if len(minutes) == 0 {
		return 25 * time.Hour
	}
	sort.Ints(minutes)

	largest := minutes[0] + 24*60 - minutes[len(minutes)-1]
	for i := 1; i < len(minutes); i++ {
		if gap := minutes[i] - minutes[i-1]; gap > largest {
			largest = gap
		}
	}
	return time.Duration(largest)*time.Minute + time.Hour
}

// Start performs the initial load, then schedules refreshes and the staleness monitor.
// A failed initial load is returned so the server never starts with empty catalogs.
func (s *Scheduler) Start() error {
	if err := s.Refresh(context.Background()); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(strings.Join(s.refreshTimes, ";")).Do(func() {
		if err := s.Refresh(context.Background()); err != nil {
			logging.Error("Failed to refresh catalogs", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog refreshes", "error", err)
		return fmt.Errorf("failed to schedule catalog refreshes: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	logging.Info("Catalog refresh scheduled", "times", s.refreshTimes, "stale_after", s.staleAfter.String())
	return nil
}

// Stop stops scheduled refreshes and the staleness monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		close(s.stop)
	})
}

// Refresh loads a fresh snapshot and swaps it into the data store.
// It returns nil without doing anything when another refresh is running.
func (s *Scheduler) Refresh(ctx context.Context) error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog refresh already in progress, skipping")
		metrics.ObserveRefresh("skipped")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting catalog refresh", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	snapshot, err := s.source.FetchSnapshot(ctx)
	if err != nil {
		metrics.ObserveRefresh("failure")
		return fmt.Errorf("failed to fetch catalogs: %w", err)
	}

	report := s.validator.ReportDataQuality(snapshot.Medicines, snapshot.Generics, snapshot.UnparsablePrices)
	logReport(report)

	s.dataStore.UpdateData(snapshot.Medicines, snapshot.Generics, report)
	metrics.ObserveCatalog("medicines", len(snapshot.Medicines))
	metrics.ObserveCatalog("generics", len(snapshot.Generics))
	metrics.ObserveRefresh("success")

	logging.Info("Catalog refresh completed",
		"duration", time.Since(start).String(),
		"medicine_count", len(snapshot.Medicines),
		"generic_count", len(snapshot.Generics),
	)
	return nil
}

func logReport(report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}
	if report.MedicinesWithoutSalt > 0 {
		logging.Warn("Medicines without salt composition",
			"count", report.MedicinesWithoutSalt,
			"names", report.MedicinesWithoutSaltNames,
		)
	}
	if len(report.DuplicateMedicineNames) > 0 {
		logging.Warn("Duplicate medicine names detected",
			"total", len(report.DuplicateMedicineNames),
			"names", report.DuplicateMedicineNames,
		)
	}
	if report.GenericsWithoutName > 0 {
		logging.Warn("Generics without name", "count", report.GenericsWithoutName)
	}
	if report.UnparsablePrices > 0 {
		logging.Warn("Unparsable prices defaulted to 0", "count", report.UnparsablePrices)
	}
}

// startHealthMonitoring warns periodically while the snapshot is older than staleAfter
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.checkStaleness(time.Now())
			}
		}
	}()
}

// checkStaleness reports whether the snapshot is stale at now, logging when it is
func (s *Scheduler) checkStaleness(now time.Time) bool {
	age := now.Sub(s.dataStore.GetLastUpdated())
	if age <= s.staleAfter {
		return false
	}
	logging.Warn("Catalogs have not been refreshed recently",
		"age", age.Round(time.Minute).String(),
		"threshold", s.staleAfter.String(),
	)
	return true
}
