// Package ratelimit provides per-key request throttling for the HTTP API.
package ratelimit

import (
	"os"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token-bucket limiter per key (typically tenant).
// Buckets are created lazily and kept for the lifetime of the process.
type Limiter struct {
	rps   rate.Limit
	burst int
	mu    sync.Mutex
	per   map[string]*rate.Limiter
}

// New builds a Limiter with the given steady rate and burst. A rps of zero
// or less disables throttling entirely.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rps: rate.Limit(rps), burst: burst, per: map[string]*rate.Limiter{}}
}

// NewFromEnv reads RATE_RPS and RATE_BURST. Unset or invalid values fall
// back to 10 req/s with a burst of 20.
func NewFromEnv() *Limiter {
	rps := 10.0
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	burst := 20
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}
	return New(rps, burst)
}

// Allow reports whether the request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.per[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.per[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
