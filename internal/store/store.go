// Package store provides the key-value seam behind the idempotency table.
// The in-memory implementation covers a single process; a shared backend can
// be slotted in behind the same interface for multi-instance deployments.
package store

import (
	"context"
	"time"

	"github.com/vipspot/contact-relay/internal/models"
)

// Store persists idempotency records with a per-entry time to live.
// Implementations must be safe for concurrent use from request handlers.
type Store interface {
	// Get returns the unexpired record for key, if any.
	Get(ctx context.Context, key string) (models.IdempotencyRecord, bool, error)
	// Set stores the record under key for the supplied ttl.
	Set(ctx context.Context, key string, rec models.IdempotencyRecord, ttl time.Duration) error
	// Delete removes the record for key if present.
	Delete(ctx context.Context, key string) error
}
