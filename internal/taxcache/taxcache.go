// Package taxcache keeps the tax total computed for an order for a short time so
// a tax update shortly after a quote does not rebuild the cart.
package taxcache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a computed tax total stays usable.
const DefaultTTL = 60 * time.Second

// Cache stores tax totals in minor units keyed by remote order id.
// A miss is not an error; callers recompute.
type Cache interface {
	Get(ctx context.Context, orderID string) (int64, bool, error)
	Set(ctx context.Context, orderID string, amount int64) error
}

type entry struct {
	amount    int64
	expiresAt time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory returns an in-process cache. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, orderID string) (int64, bool, error) {
	key := cacheKey(orderID)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return 0, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return 0, false, nil
	}
	return e.amount, true, nil
}

func (m *Memory) Set(_ context.Context, orderID string, amount int64) error {
	key := cacheKey(orderID)
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry{amount: amount, expiresAt: now.Add(m.ttl)}
	return nil
}

func cacheKey(orderID string) string {
	return strings.TrimSpace(orderID)
}

var _ Cache = (*Memory)(nil)
