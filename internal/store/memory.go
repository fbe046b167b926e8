package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/models"
)

type entry struct {
	rec       models.IdempotencyRecord
	expiresAt time.Time
}

// MemoryOption customises the in-memory store.
type MemoryOption func(*Memory)

// WithClock overrides the clock used for expiry decisions.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is a process-local Store backed by a mutex-guarded map. Expired
// entries are filtered on read and reaped by Sweep.
type Memory struct {
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory constructs an empty in-memory store.
func NewMemory(logger zerolog.Logger, opts ...MemoryOption) *Memory {
	m := &Memory{
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Get implements Store. Expired entries are treated as absent and removed.
func (m *Memory) Get(_ context.Context, key string) (models.IdempotencyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return models.IdempotencyRecord{}, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return models.IdempotencyRecord{}, false, nil
	}
	return e.rec, true, nil
}

// Set implements Store. A non-positive ttl is a no-op: the record would be
// born expired.
func (m *Memory) Set(_ context.Context, key string, rec models.IdempotencyRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{rec: rec, expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the number of live entries, expired or not. Used by tests and
// the sweep log line.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes every expired entry and returns how many were reaped.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
			reaped++
		}
	}
	return reaped
}

// Run sweeps on the supplied interval until the context is cancelled. It is
// the only background writer; it only ever deletes.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if reaped := m.Sweep(); reaped > 0 {
				m.logger.Debug().
					Int("reaped", reaped).
					Int("remaining", m.Len()).
					Msg("idempotency sweep")
			}
		}
	}
}
