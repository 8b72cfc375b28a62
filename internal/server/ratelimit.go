// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const (
	visitorStaleAfter   = 10 * time.Minute
	visitorCleanupEvery = 5 * time.Minute
)

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per IP. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the maximum burst size per IP.
	Burst int
	// MaxVisitors caps the number of IPs tracked at once. The least recently
	// seen are evicted during cleanup. Zero applies the default of 10000.
	MaxVisitors int
}

// Validate checks that the RateLimitConfig is valid and applies defaults.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return recerr.Errorf(recerr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return recerr.Errorf(recerr.CodeServerConfigInvalid,
			"rate limit burst must be positive when rate is set (got burst=%d, rate=%g)",
			c.Burst, c.RequestsPerSecond)
	}
	if c.MaxVisitors < 0 {
		return recerr.Errorf(recerr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = 10000
	}
	return nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitorTable struct {
	mu       sync.Mutex
	cfg      RateLimitConfig
	visitors map[string]*visitor
}

func (t *visitorTable) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// cleanup drops stale visitors and enforces the MaxVisitors cap.
func (t *visitorTable) cleanup(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	type seen struct {
		ip       string
		lastSeen time.Time
	}
	live := make([]seen, 0, len(t.visitors))
	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > visitorStaleAfter {
			delete(t.visitors, ip)
			continue
		}
		live = append(live, seen{ip: ip, lastSeen: v.lastSeen})
	}

	if t.cfg.MaxVisitors <= 0 || len(live) <= t.cfg.MaxVisitors {
		return
	}
	slices.SortFunc(live, func(a, b seen) int { return a.lastSeen.Compare(b.lastSeen) })
	evict := len(live) - t.cfg.MaxVisitors
	for _, s := range live[:evict] {
		delete(t.visitors, s.ip)
	}
	slog.Warn("rate limiter visitor map cap enforced",
		"evicted", evict, "max_visitors", t.cfg.MaxVisitors, "remaining", len(t.visitors))
}

func (t *visitorTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.visitors)
}

// rateLimitMiddleware returns middleware that enforces per-IP rate limits.
// Returns a pass-through middleware when cfg.RequestsPerSecond is zero.
// The done channel signals the cleanup goroutine to exit on shutdown.
func rateLimitMiddleware(cfg RateLimitConfig, done <-chan struct{}) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	table := &visitorTable{cfg: cfg, visitors: make(map[string]*visitor)}

	go func() {
		ticker := time.NewTicker(visitorCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				table.cleanup(now)
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Key on the host so several connections from one client share a bucket.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !table.allow(ip, time.Now()) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := w.Write([]byte(`{"error":"rate limit exceeded"}`)); err != nil {
					slog.Warn("failed to write rate limit response", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
