package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/redis"
	"fleetrecon/internal/repository"
)

// Ensure mocks match the interfaces they stand in for.
var (
	_ redis.DriverCacheInterface  = (*MockDriverCache)(nil)
	_ redis.LockStoreInterface    = (*MockLockStore)(nil)
	_ repository.DriverRepository = (*MockDriverRepository)(nil)
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory stand-in for the reconciler's database. It
// implements the pending order repository and the Transactor. A transaction
// snapshots the state and restores it when fn returns an error.
type MockStore struct {
	mu    sync.Mutex
	state storeState

	// Counters
	TxCount       int32
	RollbackCount int32

	// Error injection
	ListError error
	// InsertErrors fails the terminal insert of the given order references.
	InsertErrors map[string]error
	// UpsertErrors fails the ledger upsert for the given driver UUIDs.
	UpsertErrors map[string]error
}

type storeState struct {
	pending   map[string]domain.PendingOrder
	finished  map[string]domain.TerminalOrder
	anomalies map[string]domain.TerminalOrder
	ledgers   map[string]domain.DriverLedger
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		state: storeState{
			pending:   make(map[string]domain.PendingOrder),
			finished:  make(map[string]domain.TerminalOrder),
			anomalies: make(map[string]domain.TerminalOrder),
			ledgers:   make(map[string]domain.DriverLedger),
		},
		InsertErrors: make(map[string]error),
		UpsertErrors: make(map[string]error),
	}
}

func (s storeState) clone() storeState {
	c := storeState{
		pending:   make(map[string]domain.PendingOrder, len(s.pending)),
		finished:  make(map[string]domain.TerminalOrder, len(s.finished)),
		anomalies: make(map[string]domain.TerminalOrder, len(s.anomalies)),
		ledgers:   make(map[string]domain.DriverLedger, len(s.ledgers)),
	}
	for k, v := range s.pending {
		c.pending[k] = v
	}
	for k, v := range s.finished {
		c.finished[k] = v
	}
	for k, v := range s.anomalies {
		c.anomalies[k] = v
	}
	for k, v := range s.ledgers {
		c.ledgers[k] = v
	}
	return c
}

// AddPending adds a pending order.
func (m *MockStore) AddPending(order domain.PendingOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.pending[order.OrderReference] = order
}

// AddFinished adds an already finished order record.
func (m *MockStore) AddFinished(order domain.TerminalOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.finished[order.OrderReference] = order
}

// AddLedger seeds a driver ledger.
func (m *MockStore) AddLedger(ledger domain.DriverLedger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ledgers[ledger.DriverUUID] = ledger
}

// Pending returns a pending order for test assertions.
func (m *MockStore) Pending(ref string) (domain.PendingOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.pending[ref]
	return o, ok
}

// Finished returns a finished order record for test assertions.
func (m *MockStore) Finished(ref string) (domain.TerminalOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.finished[ref]
	return o, ok
}

// Anomaly returns an anomaly record for test assertions.
func (m *MockStore) Anomaly(ref string) (domain.TerminalOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.anomalies[ref]
	return o, ok
}

// Ledger returns a driver ledger for test assertions.
func (m *MockStore) Ledger(driverUUID string) (domain.DriverLedger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.state.ledgers[driverUUID]
	return l, ok
}

// Counts returns the number of pending, finished and anomalous orders.
func (m *MockStore) Counts() (pending, finished, anomalous int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.pending), len(m.state.finished), len(m.state.anomalies)
}

// WithinTx runs fn against the store. Transactions are serialized.
func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	atomic.AddInt32(&m.TxCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.state.clone()
	tx := &mockTx{store: m}
	if err := fn(ctx, repository.Stores{Pending: tx, Terminal: tx, Ledger: tx}); err != nil {
		atomic.AddInt32(&m.RollbackCount, 1)
		m.state = saved
		return err
	}
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]*domain.PendingOrder, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.PendingOrder, 0, len(m.state.pending))
	for _, o := range m.state.pending {
		copy := o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockStore) Touch(ctx context.Context, ref string, status domain.OrderStatus, checkedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m}).Touch(ctx, ref, status, checkedAt)
}

func (m *MockStore) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m}).Delete(ctx, ref)
}

func (m *MockStore) Get(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m}).Get(ctx, driverUUID)
}

func (m *MockStore) GetAll(ctx context.Context) ([]*domain.DriverLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m}).GetAll(ctx)
}

func (m *MockStore) GetForUpdate(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	return m.Get(ctx, driverUUID)
}

func (m *MockStore) Upsert(ctx context.Context, ledger *domain.DriverLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m}).Upsert(ctx, ledger)
}

// mockTx operates on the store's state while WithinTx holds its lock.
type mockTx struct {
	store *MockStore
}

func (t *mockTx) List(ctx context.Context) ([]*domain.PendingOrder, error) {
	result := make([]*domain.PendingOrder, 0, len(t.store.state.pending))
	for _, o := range t.store.state.pending {
		copy := o
		result = append(result, &copy)
	}
	return result, nil
}

func (t *mockTx) Touch(ctx context.Context, ref string, status domain.OrderStatus, checkedAt time.Time) error {
	o, ok := t.store.state.pending[ref]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	o.LastChecked = checkedAt
	t.store.state.pending[ref] = o
	return nil
}

func (t *mockTx) Delete(ctx context.Context, ref string) error {
	if _, ok := t.store.state.pending[ref]; !ok {
		return repository.ErrNotFound
	}
	delete(t.store.state.pending, ref)
	return nil
}

func (t *mockTx) Insert(ctx context.Context, order domain.TerminalOrder) error {
	if err := t.store.InsertErrors[order.OrderReference]; err != nil {
		return err
	}
	table := t.store.state.finished
	if order.Kind == domain.TerminalAnomalous {
		table = t.store.state.anomalies
	}
	if _, exists := table[order.OrderReference]; exists {
		return repository.ErrAlreadyExists
	}
	table[order.OrderReference] = order
	return nil
}

func (t *mockTx) GetForUpdate(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	return t.Get(ctx, driverUUID)
}

func (t *mockTx) Get(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	l, ok := t.store.state.ledgers[driverUUID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (t *mockTx) GetAll(ctx context.Context) ([]*domain.DriverLedger, error) {
	result := make([]*domain.DriverLedger, 0, len(t.store.state.ledgers))
	for _, l := range t.store.state.ledgers {
		copy := l
		result = append(result, &copy)
	}
	return result, nil
}

func (t *mockTx) Upsert(ctx context.Context, ledger *domain.DriverLedger) error {
	if err := t.store.UpsertErrors[ledger.DriverUUID]; err != nil {
		return err
	}
	t.store.state.ledgers[ledger.DriverUUID] = *ledger
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	GetCallCount int32

	// Error injection
	GetError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.BoltDriverUUID] = driver
}

func (m *MockDriverRepository) GetByBoltUUID(ctx context.Context, driverUUID string) (*domain.Driver, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[driverUUID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *driver
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER CACHE
// ──────────────────────────────────────────────

// MockDriverCache is a mock implementation of DriverCacheInterface.
type MockDriverCache struct {
	mu      sync.Mutex
	drivers map[string]domain.Driver

	// Counters
	HitCount  int32
	MissCount int32

	// Error injection
	GetError error
}

// NewMockDriverCache creates a new mock driver cache.
func NewMockDriverCache() *MockDriverCache {
	return &MockDriverCache{drivers: make(map[string]domain.Driver)}
}

func (m *MockDriverCache) GetDriver(ctx context.Context, driverUUID string) (*domain.Driver, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverUUID]
	if !ok {
		atomic.AddInt32(&m.MissCount, 1)
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return &d, nil
}

func (m *MockDriverCache) SetDriver(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.BoltDriverUUID] = *driver
	return nil
}

// Has checks if a driver is cached.
func (m *MockDriverCache) Has(driverUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drivers[driverUUID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK FETCHER
// ──────────────────────────────────────────────

// MockFetcher is a mock upstream snapshot source.
type MockFetcher struct {
	mu        sync.Mutex
	snapshots []domain.OrderSnapshot

	// Recorded window of the last call
	LastStart time.Time
	LastEnd   time.Time

	// Counters
	FetchCallCount int32

	// Error injection
	FetchError error
	// Block makes FetchOrders wait for the context to end.
	Block bool
}

// NewMockFetcher creates a new mock fetcher returning snapshots.
func NewMockFetcher(snapshots ...domain.OrderSnapshot) *MockFetcher {
	return &MockFetcher{snapshots: snapshots}
}

func (m *MockFetcher) FetchOrders(ctx context.Context, companyID string, start, end time.Time) ([]domain.OrderSnapshot, error) {
	atomic.AddInt32(&m.FetchCallCount, 1)
	m.mu.Lock()
	m.LastStart, m.LastEnd = start, end
	m.mu.Unlock()

	if m.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.FetchError != nil {
		return nil, m.FetchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.OrderSnapshot, len(m.snapshots))
	copy(result, m.snapshots)
	return result, nil
}

// Window returns the window of the last fetch.
func (m *MockFetcher) Window() (time.Time, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastStart, m.LastEnd
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) acquire(key string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverUUID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:driver:"+driverUUID, ttl)
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverUUID string) error {
	return m.release("lock:driver:" + driverUUID)
}

func (m *MockLockStore) AcquireCycleLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return m.acquire("lock:cycle", ttl)
}

func (m *MockLockStore) ReleaseCycleLock(ctx context.Context) error {
	return m.release("lock:cycle")
}

// HoldDriverLock marks a driver as locked by another replica.
func (m *MockLockStore) HoldDriverLock(driverUUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:driver:"+driverUUID] = time.Now().Add(time.Hour)
}

// HoldCycleLock marks the cycle as running on another replica.
func (m *MockLockStore) HoldCycleLock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:cycle"] = time.Now().Add(time.Hour)
}

// IsLocked checks if a driver is locked (for test assertions).
func (m *MockLockStore) IsLocked(driverUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:driver:"+driverUUID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
