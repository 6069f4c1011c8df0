package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/giygas/meditrust-api/metrics"
)

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedCost int64
	}{
		{"health", "/health", 5},
		{"metrics", "/metrics", 5},
		{"full catalog", "/medicine/all", 200},
		{"scan", "/medicine/scan", 100},
		{"legacy upload", "/medicine/ocr/upload", 100},
		{"search", "/medicine/search", 20},
		{"generic match", "/generics/match", 20},
		{"unknown", "/unknown", 5},
		{"root", "/", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("getTokenCost(%s) = %d, want %d", tt.path, cost, tt.expectedCost)
			}
		})
	}
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter()
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 1000 tokens at 200 per full catalog request: 5 pass, the 6th is limited
	for i := range 5 {
		req := httptest.NewRequest("GET", "/medicine/all", nil)
		req.RemoteAddr = "203.0.113.7"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != strconv.Itoa(bucketCapacity) {
			t.Errorf("missing X-RateLimit-Limit header")
		}
	}

	req := httptest.NewRequest("GET", "/medicine/all", nil)
	req.RemoteAddr = "203.0.113.7"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After header, got %q", rr.Header().Get("Retry-After"))
	}

	// Another client has its own bucket
	req = httptest.NewRequest("GET", "/medicine/all", nil)
	req.RemoteAddr = "203.0.113.8"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected a fresh bucket for another client, got %d", rr.Code)
	}
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := NewRateLimiter()
	rl.getBucket("198.51.100.1")
	busy := rl.getBucket("198.51.100.2")
	busy.TakeAvailable(500)

	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 2 {
		t.Errorf("expected bucket gauge 2, got %v", got)
	}

	if evicted := rl.evictIdle(); evicted != 1 {
		t.Errorf("expected 1 idle bucket evicted, got %d", evicted)
	}
	if _, ok := rl.clients["198.51.100.2"]; !ok {
		t.Error("busy client should be kept")
	}
	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 1 {
		t.Errorf("expected bucket gauge 1, got %v", got)
	}

	rl.Stop()
	rl.Stop()
}
