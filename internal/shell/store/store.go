package store

import (
	"context"
	"time"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store records webhook deliveries so redelivered webhooks are handled at
// most once. Deployment records are never stored; the provider owns them.
type Store interface {
	// RecordDelivery stores d. Returns false if a delivery with the same ID
	// was already recorded.
	RecordDelivery(ctx context.Context, d Delivery) (bool, error)

	// ListDeliveries returns deliveries, most recent first.
	ListDeliveries(ctx context.Context, opts ListOptions) ([]Delivery, error)

	// PruneDeliveries deletes deliveries received before the cutoff and
	// returns how many were removed.
	PruneDeliveries(ctx context.Context, before time.Time) (int64, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// =============================================================================
// Types
// =============================================================================

// Delivery is one received webhook.
type Delivery struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Action     string    `json:"action,omitempty"`
	Repository string    `json:"repository,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// ListOptions configures list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
