package service

import (
	"context"

	"github.com/rs/zerolog"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/redis"
	"fleetrecon/internal/repository"
)

// DriverDirectory looks up driver records, reading through the Redis cache
// when one is configured.
type DriverDirectory struct {
	driverRepo repository.DriverRepository
	cache      redis.DriverCacheInterface
	logger     zerolog.Logger
}

// NewDriverDirectory creates a new DriverDirectory. cache may be nil.
func NewDriverDirectory(driverRepo repository.DriverRepository, cache redis.DriverCacheInterface, logger zerolog.Logger) *DriverDirectory {
	return &DriverDirectory{driverRepo: driverRepo, cache: cache, logger: logger}
}

// GetDriver returns the driver with the given Bolt UUID.
// Returns repository.ErrNotFound if there is none.
func (d *DriverDirectory) GetDriver(ctx context.Context, driverUUID string) (*domain.Driver, error) {
	if driverUUID == "" {
		return nil, ErrInvalidDriverID
	}

	if d.cache != nil {
		cached, err := d.cache.GetDriver(ctx, driverUUID)
		if err != nil {
			d.logger.Warn().Err(err).Str("driver_uuid", driverUUID).Msg("driver cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	driver, err := d.driverRepo.GetByBoltUUID(ctx, driverUUID)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if err := d.cache.SetDriver(ctx, driver); err != nil {
			d.logger.Warn().Err(err).Str("driver_uuid", driverUUID).Msg("driver cache write failed")
		}
	}
	return driver, nil
}
