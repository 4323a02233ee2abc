package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cycleLockKey = "lock:reconcile:cycle"

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client redis.Cmdable
	owner  string
}

// NewLockStore creates a new LockStore. owner identifies this replica in the
// lock values so a lock is only released by the replica holding it.
func NewLockStore(client redis.Cmdable, owner string) *LockStore {
	return &LockStore{client: client, owner: owner}
}

// releaseScript deletes a key only if it still holds our owner value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireDriverLock attempts to acquire a lock for the given driver's ledger.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverUUID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, driverLockKey(driverUUID), s.owner, ttl).Result()
}

// ReleaseDriverLock releases the lock for the given driver.
func (s *LockStore) ReleaseDriverLock(ctx context.Context, driverUUID string) error {
	return releaseScript.Run(ctx, s.client, []string{driverLockKey(driverUUID)}, s.owner).Err()
}

// AcquireCycleLock attempts to become the only replica running a cycle.
func (s *LockStore) AcquireCycleLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, cycleLockKey, s.owner, ttl).Result()
}

// ReleaseCycleLock releases the cycle lock.
func (s *LockStore) ReleaseCycleLock(ctx context.Context) error {
	return releaseScript.Run(ctx, s.client, []string{cycleLockKey}, s.owner).Err()
}

func driverLockKey(driverUUID string) string {
	return fmt.Sprintf("lock:ledger:driver:%s", driverUUID)
}
