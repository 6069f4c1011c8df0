package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giygas/meditrust-api/config"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/metrics"
	"github.com/juju/ratelimit"
)

// Rate limiter bucket settings: 3 tokens per second, max 1000 tokens
const (
	bucketRate     = 3
	bucketCapacity = 1000
)

// uploadPaths accept bodies up to MaxUploadSize instead of MaxRequestBody
var uploadPaths = map[string]struct{}{
	"/medicine/scan":       {},
	"/medicine/ocr/upload": {},
}

// RealIPMiddleware extracts the real IP from X-Forwarded-For header,
// falling back to RemoteAddr without its port
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP from the comma-separated list
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			r.RemoteAddr = host
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware rejects requests that did not come through a proxy,
// except from localhost. allowDirect disables the check.
func BlockDirectAccessMiddleware(allowDirect bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowDirect || r.Header.Get("X-Real-IP") != "" || r.Header.Get("X-Forwarded-For") != "" {
				next.ServeHTTP(w, r)
				return
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if host == "127.0.0.1" || host == "::1" || host == "localhost" {
				next.ServeHTTP(w, r)
				return
			}

			logging.Warn("Direct access blocked", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
			http.Error(w, "Direct access not allowed", http.StatusForbidden)
		})
	}
}

// RequestSizeMiddleware limits the size of request headers and body
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBody := cfg.MaxRequestBody
			if _, upload := uploadPaths[r.URL.Path]; upload && cfg.MaxUploadSize > 0 {
				maxBody = cfg.MaxUploadSize
			}

			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if length, err := strconv.ParseInt(contentLength, 10, 64); err == nil && length > maxBody {
					logging.Warn("Request body too large",
						"content_length", length,
						"max_allowed", maxBody,
						"remote_addr", r.RemoteAddr,
						"user_agent", r.UserAgent())

					respondWithJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
						"error":   http.StatusText(http.StatusRequestEntityTooLarge),
						"message": fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", maxBody),
						"code":    http.StatusRequestEntityTooLarge,
					})
					return
				}
			}

			// Rough estimate of the header size
			headerSize := int64(0)
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}

			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())

				respondWithJSON(w, http.StatusRequestHeaderFieldsTooLarge, map[string]any{
					"error":   http.StatusText(http.StatusRequestHeaderFieldsTooLarge),
					"message": fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize),
					"code":    http.StatusRequestHeaderFieldsTooLarge,
				})
				return
			}

			// Chunked bodies carry no Content-Length
			if r.Body != nil && maxBody > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	clients  map[string]*ratelimit.Bucket
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter. Call StartCleanup to evict idle clients.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*ratelimit.Bucket),
		stop:    make(chan struct{}),
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(bucketRate, bucketCapacity)
			rl.clients[clientIP] = bucket
			metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
		}
		rl.mu.Unlock()
	}

	return bucket
}

// evictIdle removes clients whose bucket has refilled completely
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
			evicted++
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	return evicted
}

// StartCleanup evicts idle clients every interval until Stop is called
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				if evicted := rl.evictIdle(); evicted > 0 {
					logging.Debug("Rate limiter buckets evicted", "count", evicted)
				}
			}
		}
	}()
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// getTokenCost returns the number of tokens a request consumes
func getTokenCost(r *http.Request) int64 {
	switch r.URL.Path {
	case "/health", "/metrics":
		return 5
	case "/medicine/all":
		return 200 // Full catalog dump
	case "/medicine/scan", "/medicine/ocr/upload":
		return 100 // OCR is the most expensive operation
	case "/medicine/search", "/generics/match":
		return 20
	}
	return 5
}

// Handler implements rate limiting using token buckets keyed by client address
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(r.RemoteAddr)
		tokenCost := getTokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bucketCapacity))
		w.Header().Set("X-RateLimit-Rate", strconv.Itoa(bucketRate))

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Error("Failed to encode JSON response", "error", err)
		}
	}
}
