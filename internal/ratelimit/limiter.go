// Package ratelimit spaces out repeated actions against the same key: outbound
// requests to a vendor host, or chat messages within one conversation.
package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter is the non-blocking limiter contract shared by the in-memory
// and Redis implementations
type RateLimiter interface {
	// Allow reports whether an action for key may proceed now, and records it if so
	Allow(key string) bool
	// Reset forgets the last action for key
	Reset(key string)
}

// Limiter enforces a minimum interval between actions per key
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates an in-memory limiter
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow returns true when minInterval has elapsed since the last allowed action.
// A denied call does not move the window.
func (l *Limiter) Allow(host string) bool {
	if l.minInterval <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.hosts[host]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait blocks until an action for host is allowed, then records it
func (l *Limiter) Wait(host string) {
	if l.minInterval <= 0 {
		return
	}

	l.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if last, ok := l.hosts[host]; ok {
		next := last.Add(l.minInterval)
		if now.Before(next) {
			wait = next.Sub(now)
			now = next
		}
	}
	// Reserve the slot before sleeping so concurrent waiters queue up behind it
	l.hosts[host] = now
	l.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// Reset clears the history for a single key
func (l *Limiter) Reset(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// ResetAll clears the history for every key
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}

var _ RateLimiter = (*Limiter)(nil)
