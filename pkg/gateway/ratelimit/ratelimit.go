// Package ratelimit implements a per-client token bucket used to throttle
// webhook and API traffic. State is in-memory and single-process.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

type Config struct {
	RPS   float64
	Burst int

	// Bounds for the client map so hostile traffic cannot grow it forever.
	MaxEntries int
	EntryTTL   time.Duration
}

type Decision struct {
	Allowed    bool
	RetryAfter int
}

// bucket is the token-bucket state for one client.
type bucket struct {
	tokens   float64
	last     time.Time
	lastSeen time.Time
}

type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(cfg Config) *Limiter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 30 * time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
	}
}

// Allow answers whether a request from the given client may proceed now.
// Limiting is disabled entirely when RPS or Burst is zero.
func (l *Limiter) Allow(client string, now time.Time) Decision {
	if l.cfg.RPS <= 0 || l.cfg.Burst <= 0 {
		return Decision{Allowed: true}
	}
	if client == "" {
		client = "anonymous"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[client]
	if !ok {
		if len(l.buckets) >= l.cfg.MaxEntries {
			l.evictLocked(now)
		}
		b = &bucket{tokens: float64(l.cfg.Burst), last: now}
		l.buckets[client] = b
	}
	b.lastSeen = now

	// Refill proportionally to elapsed time, capped at the burst size.
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.cfg.RPS)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true}
	}

	wait := (1 - b.tokens) / l.cfg.RPS
	retryAfter := int(math.Ceil(wait))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// evictLocked drops idle clients; if everyone is active it drops one
// arbitrary entry, preferring bounded memory over perfect fairness.
func (l *Limiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.cfg.EntryTTL {
			delete(l.buckets, k)
		}
	}
	if len(l.buckets) >= l.cfg.MaxEntries {
		for k := range l.buckets {
			delete(l.buckets, k)
			break
		}
	}
}
