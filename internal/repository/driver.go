package repository

import (
	"context"

	"fleetrecon/internal/domain"
)

// DriverRepository reads driver reference data.
type DriverRepository interface {
	// GetByBoltUUID retrieves a driver by its Bolt driver UUID.
	GetByBoltUUID(ctx context.Context, driverUUID string) (*domain.Driver, error)
}
