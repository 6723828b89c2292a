// Package credcache holds the most recently exchanged credential triple per
// service and decides when a re-exchange is needed.
package credcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"s3bridge/internal/domain"
)

// SafetyMargin is subtracted from a credential's true expiry to decide when
// the cache must proactively refresh.
const SafetyMargin = 10 * time.Minute

// ExchangeFunc produces a fresh credential triple on a cache miss.
type ExchangeFunc func(ctx context.Context) (domain.CredentialTriple, error)

type entry struct {
	triple      domain.CredentialTriple
	usableUntil time.Time
}

// Cache caches credential triples keyed by service name. Entries are
// replaced atomically, never patched. Concurrent refreshes for the same
// service are coalesced into a single exchange; exchanges are idempotent, so
// coalescing is an efficiency choice rather than a correctness requirement.
type Cache struct {
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty cache using the wall clock.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty cache with an injected clock.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{now: now, entries: make(map[string]entry)}
}

// GetOrRefresh returns the cached triple for the service while it is still
// usable, and otherwise invokes fn exactly once across concurrent callers,
// stores the result, and returns it.
func (c *Cache) GetOrRefresh(ctx context.Context, service string, fn ExchangeFunc) (domain.CredentialTriple, error) {
	if triple, ok := c.lookup(service); ok {
		return triple, nil
	}

	v, err, _ := c.group.Do(service, func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the flight.
		if triple, ok := c.lookup(service); ok {
			return triple, nil
		}
		triple, err := fn(ctx)
		if err != nil {
			return domain.CredentialTriple{}, err
		}
		c.store(service, triple)
		return triple, nil
	})
	if err != nil {
		return domain.CredentialTriple{}, err
	}
	return v.(domain.CredentialTriple), nil
}

// Invalidate discards the cached entry for the service unconditionally,
// forcing the next call to re-exchange.
func (c *Cache) Invalidate(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, service)
}

// InvalidateAll discards every cached entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

func (c *Cache) lookup(service string) (domain.CredentialTriple, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[service]
	if !ok || !c.now().Before(e.usableUntil) {
		return domain.CredentialTriple{}, false
	}
	return e.triple, true
}

func (c *Cache) store(service string, triple domain.CredentialTriple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[service] = entry{
		triple:      triple,
		usableUntil: triple.Expiration.Add(-SafetyMargin),
	}
}
