package repository

import (
	"context"
	"time"

	"fleetrecon/internal/domain"
)

// PendingOrderRepository defines the persistence operations for the
// in-progress order queue.
type PendingOrderRepository interface {
	// List retrieves every pending order.
	List(ctx context.Context) ([]*domain.PendingOrder, error)

	// Touch records a status update for an order: its status and last_checked.
	Touch(ctx context.Context, orderRef string, status domain.OrderStatus, checkedAt time.Time) error

	// Delete removes an order from the queue.
	Delete(ctx context.Context, orderRef string) error
}
