package redis

import (
	"context"
	"time"

	"fleetrecon/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverUUID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverUUID string) error
	AcquireCycleLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseCycleLock(ctx context.Context) error
}

// DriverCacheInterface defines the interface for driver record caching.
type DriverCacheInterface interface {
	GetDriver(ctx context.Context, driverUUID string) (*domain.Driver, error)
	SetDriver(ctx context.Context, driver *domain.Driver) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface   = (*LockStore)(nil)
	_ DriverCacheInterface = (*CacheStore)(nil)
)
