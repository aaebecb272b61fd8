package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which webhook deliveries have already been
// handled so that platform retries of the same event acknowledge without
// triggering another sync.
type IdempotencyStore interface {
	// MarkProcessed records an event key with a TTL. It returns true when
	// the key was new and false when a delivery with the same key was
	// already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event key has already been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig controls webhook delivery deduplication.
type IdempotencyConfig struct {
	// TTL bounds how long a recorded event key suppresses duplicates.
	// Once it elapses, a redelivery of the same event is treated as new.
	TTL time.Duration

	// Enabled turns deduplication off entirely when false. Every delivery
	// is then processed, including platform retries.
	Enabled bool
}

// DefaultIdempotencyConfig returns the deduplication settings used when the
// configuration does not override them.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
