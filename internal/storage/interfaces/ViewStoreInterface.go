package interfaces

import (
	"context"
	"gitviewer/internal/models"
	"time"
)

// ViewStoreInterface is the contract every storage backend satisfies.
// Get returns (nil, nil) when no record exists for username.
type ViewStoreInterface interface {
	Get(ctx context.Context, username string) (*models.ViewRecord, error)
	Put(ctx context.Context, username string, record *models.ViewRecord) error
	GetCooldown(ctx context.Context, username, visitorID string) (time.Time, bool, error)
	PutCooldown(ctx context.Context, username, visitorID string, at time.Time) error
	PruneCooldowns(ctx context.Context, username string, olderThan time.Time) (int, error)
	Close() error
}

// CountIncrementer is implemented by backends with an atomic increment.
// Put on such a backend must never lower the persisted count.
type CountIncrementer interface {
	IncrementCount(ctx context.Context, username string, now time.Time) (int64, error)
}

// CooldownClaimer is implemented by backends that can check and refresh a
// cooldown entry in one step. It reports true when the visit should count.
type CooldownClaimer interface {
	ClaimCooldown(ctx context.Context, username, visitorID string, now time.Time, window time.Duration) (bool, error)
}
