package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryBalanceCache implements BalanceCache with a process-local map.
// Used in development and tests where no Redis is available.
type InMemoryBalanceCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]balanceEntry
	ttl     time.Duration
}

type balanceEntry struct {
	total     decimal.Decimal
	expiresAt time.Time
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(ttl time.Duration) *InMemoryBalanceCache {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &InMemoryBalanceCache{
		entries: make(map[uuid.UUID]balanceEntry),
		ttl:     ttl,
	}
}

// GetTotalDue returns the cached total and true on a hit
func (c *InMemoryBalanceCache) GetTotalDue(_ context.Context, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[patientID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return decimal.Zero, false, nil
	}
	return entry.total, true, nil
}

// SetTotalDue stores the total for a patient
func (c *InMemoryBalanceCache) SetTotalDue(_ context.Context, patientID uuid.UUID, total decimal.Decimal) error {
	c.mu.Lock()
	c.entries[patientID] = balanceEntry{total: total, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate evicts the cached total for a patient
func (c *InMemoryBalanceCache) Invalidate(_ context.Context, patientID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, patientID)
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory cache
func (c *InMemoryBalanceCache) Close() error {
	return nil
}

var _ BalanceCache = (*InMemoryBalanceCache)(nil)
