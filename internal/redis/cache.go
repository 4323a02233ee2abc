package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetrecon/internal/domain"
)

// DriverCacheTTL bounds how long a driver record is served from cache.
// Driver names and debnr numbers change rarely.
const DriverCacheTTL = 10 * time.Minute

const driverCachePrefix = "cache:driver:"

// CacheStore handles driver record caching in Redis.
type CacheStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client redis.Cmdable) *CacheStore {
	return &CacheStore{client: client, ttl: DriverCacheTTL}
}

// CachedDriver represents a cached driver record.
type CachedDriver struct {
	TaxibeeID       int64  `json:"taxibee_id"`
	BoltDriverUUID  string `json:"bolt_driver_uuid"`
	BoltPartnerUUID string `json:"bolt_partner_uuid"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ExactDebnr      string `json:"exact_debnr"`
	State           string `json:"state"`
	CompanyID       string `json:"company_id"`
}

// GetDriver retrieves a driver from cache. A miss returns nil, nil.
func (s *CacheStore) GetDriver(ctx context.Context, driverUUID string) (*domain.Driver, error) {
	data, err := s.client.Get(ctx, driverCachePrefix+driverUUID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedDriver
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain(), nil
}

// SetDriver stores a driver in cache.
func (s *CacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	data, err := json.Marshal(fromDomain(driver))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, driverCachePrefix+driver.BoltDriverUUID, data, s.ttl).Err()
}

func fromDomain(d *domain.Driver) *CachedDriver {
	return &CachedDriver{
		TaxibeeID:       d.TaxibeeID,
		BoltDriverUUID:  d.BoltDriverUUID,
		BoltPartnerUUID: d.BoltPartnerUUID,
		FullName:        d.FullName,
		Phone:           d.Phone,
		Email:           d.Email,
		ExactDebnr:      d.ExactDebnr,
		State:           string(d.State),
		CompanyID:       d.CompanyID,
	}
}

func (c *CachedDriver) toDomain() *domain.Driver {
	return &domain.Driver{
		TaxibeeID:       c.TaxibeeID,
		BoltDriverUUID:  c.BoltDriverUUID,
		BoltPartnerUUID: c.BoltPartnerUUID,
		FullName:        c.FullName,
		Phone:           c.Phone,
		Email:           c.Email,
		ExactDebnr:      c.ExactDebnr,
		State:           domain.DriverState(c.State),
		CompanyID:       c.CompanyID,
	}
}
