// Package health provides health checking functionality for the meditrust API.
package health

import (
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
)

// DefaultRefreshTimes are the daily catalog refresh times used when none are configured
var DefaultRefreshTimes = []string{"06:00", "18:00"}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	// Minutes after midnight of each daily refresh, sorted
	refreshMinutes []int
}

// NewHealthChecker creates a new health checker with injected dependencies.
// refreshTimes are "HH:MM" values; invalid entries are ignored.
func NewHealthChecker(dataStore interfaces.DataStore, refreshTimes []string) interfaces.HealthChecker {
	minutes := parseRefreshTimes(refreshTimes)
	if len(minutes) == 0 {
		minutes = parseRefreshTimes(DefaultRefreshTimes)
	}
	return &HealthCheckerImpl{
		dataStore:      dataStore,
		refreshMinutes: minutes,
	}
}

func parseRefreshTimes(refreshTimes []string) []int {
	var minutes []int
	for _, value := range refreshTimes {
		t, err := time.Parse("15:04", strings.TrimSpace(value))
		if err != nil {
			logging.Warn("Ignoring invalid refresh time", "value", value)
			continue
		}
		minutes = append(minutes, t.Hour()*60+t.Minute())
	}
	slices.Sort(minutes)
	return slices.Compact(minutes)
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	medicines := h.dataStore.GetMedicines()
	generics := h.dataStore.GetGenerics()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	switch {
	case lastUpdate.IsZero() || len(medicines) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	// Medicines can still be identified, only alternatives are missing
	case len(generics) == 0:
		status = "degraded"
		httpStatus = http.StatusOK

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"medicines":      len(medicines),
		"generics":       len(generics),
		"is_updating":    isUpdating,
		"next_update":    h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog refresh
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextUpdateAfter(time.Now(), h.refreshMinutes)
}

// nextUpdateAfter returns the first refresh strictly after now, refreshMinutes being sorted
func nextUpdateAfter(now time.Time, refreshMinutes []int) time.Time {
	at := func(day time.Time, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, day.Location())
	}

	for _, m := range refreshMinutes {
		if candidate := at(now, m); candidate.After(now) {
			return candidate
		}
	}

	return at(now.AddDate(0, 0, 1), refreshMinutes[0])
}
