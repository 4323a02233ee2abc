package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/redis"
	"fleetrecon/internal/repository"
)

// DefaultWindowBuffer widens the fetch window below the oldest pending order
// to absorb clock skew between us and the upstream.
const DefaultWindowBuffer = 50 * time.Second

// SnapshotFetcher fetches upstream order snapshots for a time window.
type SnapshotFetcher interface {
	FetchOrders(ctx context.Context, companyID string, start, end time.Time) ([]domain.OrderSnapshot, error)
}

// ReconcileConfig tunes a ReconcileService.
type ReconcileConfig struct {
	CompanyID    string
	StaleAfter   time.Duration
	WindowBuffer time.Duration
	FetchTimeout time.Duration
	// Concurrency above 1 processes different drivers' orders in parallel.
	Concurrency int
	LockTTL     time.Duration
}

// ReconcileService runs reconciliation cycles over the pending order queue.
type ReconcileService struct {
	pendingRepo repository.PendingOrderRepository
	transactor  repository.Transactor
	fetcher     SnapshotFetcher
	aggregator  *LedgerAggregator
	lockStore   redis.LockStoreInterface
	metrics     *Metrics
	logger      zerolog.Logger
	cfg         ReconcileConfig
	now         func() time.Time
}

// NewReconcileService creates a new ReconcileService. lockStore and metrics
// may be nil; without a lock store only one replica may run.
func NewReconcileService(
	pendingRepo repository.PendingOrderRepository,
	transactor repository.Transactor,
	fetcher SnapshotFetcher,
	aggregator *LedgerAggregator,
	lockStore redis.LockStoreInterface,
	metrics *Metrics,
	logger zerolog.Logger,
	cfg ReconcileConfig,
) *ReconcileService {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.WindowBuffer <= 0 {
		cfg.WindowBuffer = DefaultWindowBuffer
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &ReconcileService{
		pendingRepo: pendingRepo,
		transactor:  transactor,
		fetcher:     fetcher,
		aggregator:  aggregator,
		lockStore:   lockStore,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         utcNow,
	}
}

func utcNow() time.Time { return time.Now().UTC() }

// WithClock replaces the service's time source.
func (s *ReconcileService) WithClock(now func() time.Time) *ReconcileService {
	s.now = now
	return s
}

// RunCycle runs one reconciliation cycle.
//
// The cycle fails as a whole, before any order is touched, if the pending
// queue cannot be read or the upstream fetch fails. After that, each order is
// moved in its own transaction and a failing order is only counted in the
// summary.
func (s *ReconcileService) RunCycle(ctx context.Context) (*CycleSummary, error) {
	summary := newCycleSummary(s.now())
	log := s.logger.With().Str("cycle_id", summary.ID).Logger()
	txn := newrelic.FromContext(ctx)
	txn.AddAttribute("cycle_id", summary.ID)

	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireCycleLock(ctx, s.cfg.LockTTL)
		if err != nil {
			return nil, s.fail(summary, txn, fmt.Errorf("acquire cycle lock: %w", err))
		}
		if !acquired {
			s.metrics.ObserveCycle("skipped", 0)
			return nil, ErrCycleInProgress
		}
		defer func() {
			if err := s.lockStore.ReleaseCycleLock(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("release cycle lock")
			}
		}()
	}

	orders, err := s.pendingRepo.List(ctx)
	if err != nil {
		return nil, s.fail(summary, txn, fmt.Errorf("%w: list pending orders: %w", ErrPersistence, err))
	}
	summary.Pending = len(orders)
	if len(orders) == 0 {
		s.finish(summary, log)
		return summary, nil
	}

	now := s.now()
	summary.WindowStart, summary.WindowEnd = s.fetchWindow(orders, now)

	snapshots, err := s.fetch(ctx, txn, summary.WindowStart, summary.WindowEnd)
	if err != nil {
		return nil, s.fail(summary, txn, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
	}
	summary.Snapshots = len(snapshots)
	s.metrics.SetBacklog(len(orders), len(snapshots))

	lookup := s.buildLookup(snapshots, summary)

	seg := txn.StartSegment("reconcile/process")
	s.processAll(ctx, orders, lookup, now, summary, log)
	seg.End()

	s.finish(summary, log)
	return summary, nil
}

// fetchWindow returns the upstream window covering every pending order. It
// starts at the earliest known creation time less the buffer. When no order
// has a creation time, it starts early enough to cover any order that is not
// yet stale.
func (s *ReconcileService) fetchWindow(orders []*domain.PendingOrder, now time.Time) (time.Time, time.Time) {
	var earliest time.Time
	for _, o := range orders {
		created := o.Timestamps.Created
		if created.IsZero() {
			continue
		}
		if earliest.IsZero() || created.Before(earliest) {
			earliest = created
		}
	}
	if earliest.IsZero() {
		earliest = now.Add(-s.cfg.StaleAfter)
	}
	return earliest.Add(-s.cfg.WindowBuffer), now
}

func (s *ReconcileService) fetch(ctx context.Context, txn *newrelic.Transaction, start, end time.Time) ([]domain.OrderSnapshot, error) {
	defer txn.StartSegment("reconcile/fetch").End()

	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}
	return s.fetcher.FetchOrders(ctx, s.cfg.CompanyID, start, end)
}

// buildLookup indexes snapshots by order reference. Records without a
// reference are reported and dropped; for repeated references the last
// record wins.
func (s *ReconcileService) buildLookup(snapshots []domain.OrderSnapshot, summary *CycleSummary) map[string]*domain.OrderSnapshot {
	lookup := make(map[string]*domain.OrderSnapshot, len(snapshots))
	for i := range snapshots {
		snap := &snapshots[i]
		if !snap.Valid() {
			err := fmt.Errorf("%w: upstream record %d has no order reference", ErrMalformedSnapshot, i)
			summary.addError(err)
			s.metrics.ObserveIssue(issueKind(err))
			continue
		}
		lookup[snap.OrderReference] = snap
	}
	return lookup
}

// processAll decides on and applies every pending order. With concurrency
// above 1, orders are partitioned by driver so one driver's ledger only ever
// has one writer in this process.
func (s *ReconcileService) processAll(
	ctx context.Context,
	orders []*domain.PendingOrder,
	lookup map[string]*domain.OrderSnapshot,
	now time.Time,
	summary *CycleSummary,
	log zerolog.Logger,
) {
	handle := func(order *domain.PendingOrder) {
		result := s.processOrder(ctx, order, lookup[order.OrderReference], now)
		s.report(result, log)
		summary.record(result)
	}

	if s.cfg.Concurrency == 1 {
		for _, order := range orders {
			handle(order)
		}
		return
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, group := range groupByDriver(orders) {
		wg.Add(1)
		sem <- struct{}{}
		go func(group []*domain.PendingOrder) {
			defer wg.Done()
			defer func() { <-sem }()
			for _, order := range group {
				handle(order)
			}
		}(group)
	}
	wg.Wait()
}

func groupByDriver(orders []*domain.PendingOrder) [][]*domain.PendingOrder {
	index := make(map[string]int)
	var groups [][]*domain.PendingOrder
	for _, o := range orders {
		i, ok := index[o.DriverUUID]
		if !ok {
			i = len(groups)
			index[o.DriverUUID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], o)
	}
	return groups
}

func (s *ReconcileService) processOrder(ctx context.Context, order *domain.PendingOrder, snap *domain.OrderSnapshot, now time.Time) orderResult {
	decision := Decide(*order, snap, now, s.cfg.StaleAfter)
	result := orderResult{ref: order.OrderReference, outcome: decision.Outcome}

	var err error
	switch decision.Outcome {
	case OutcomeAnomalous:
		err = s.retire(ctx, order, decision, &result)
	case OutcomeFinished:
		err = s.promote(ctx, order, decision, &result)
	default:
		if decision.Touch {
			err = s.transactor.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
				return stores.Pending.Touch(ctx, order.OrderReference, decision.Status, now)
			})
		}
	}

	if err != nil {
		if !errors.Is(err, ErrDriverBusy) {
			err = fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		result.err = err
	}
	return result
}

// retire moves a stale order to the anomaly table.
func (s *ReconcileService) retire(ctx context.Context, order *domain.PendingOrder, decision Decision, result *orderResult) error {
	return s.transactor.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		result.notes = nil
		err := stores.Terminal.Insert(ctx, *decision.Terminal)
		if errors.Is(err, repository.ErrAlreadyExists) {
			result.notes = append(result.notes, fmt.Errorf("%w: anomaly record already written", ErrDuplicateOrder))
		} else if err != nil {
			return err
		}
		return stores.Pending.Delete(ctx, order.OrderReference)
	})
}

// promote writes the finished record, folds the order into its driver's
// ledger and drops it from the queue, all in one transaction. A finished
// record that already exists means the ledger was already credited, so only
// the queue row is dropped.
func (s *ReconcileService) promote(ctx context.Context, order *domain.PendingOrder, decision Decision, result *orderResult) error {
	finished := decision.Terminal.OrderRecord
	driverUUID := finished.DriverUUID

	if s.lockStore != nil && driverUUID != "" {
		acquired, err := s.lockStore.AcquireDriverLock(ctx, driverUUID, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire driver lock: %w", err)
		}
		if !acquired {
			return ErrDriverBusy
		}
		defer func() {
			if err := s.lockStore.ReleaseDriverLock(context.WithoutCancel(ctx), driverUUID); err != nil {
				s.logger.Warn().Err(err).Str("driver_uuid", driverUUID).Msg("release driver lock")
			}
		}()
	}

	return s.transactor.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		result.notes = nil

		err := stores.Terminal.Insert(ctx, *decision.Terminal)
		if errors.Is(err, repository.ErrAlreadyExists) {
			result.notes = append(result.notes, fmt.Errorf("%w: ledger left unchanged", ErrDuplicateOrder))
			return stores.Pending.Delete(ctx, order.OrderReference)
		}
		if err != nil {
			return err
		}

		if _, err := s.aggregator.ApplyFinishedOrder(ctx, stores.Ledger, finished); err != nil {
			if !errors.Is(err, ErrMissingDriverReference) {
				return err
			}
			result.notes = append(result.notes, err)
		}

		return stores.Pending.Delete(ctx, order.OrderReference)
	})
}

func (s *ReconcileService) report(result orderResult, log zerolog.Logger) {
	if result.err != nil {
		s.metrics.ObserveOrder("failed")
		s.metrics.ObserveIssue(issueKind(result.err))
		log.Error().Err(result.err).Str("order_reference", result.ref).Msg("order left pending")
		return
	}

	s.metrics.ObserveOrder(strings.ToLower(string(result.outcome)))
	for _, note := range result.notes {
		s.metrics.ObserveIssue(issueKind(note))
		log.Warn().Err(note).Str("order_reference", result.ref).Str("outcome", string(result.outcome)).Msg("order moved with issue")
	}
	if result.outcome != OutcomeStillPending {
		log.Debug().Str("order_reference", result.ref).Str("outcome", string(result.outcome)).Msg("order moved")
	}
}

func (s *ReconcileService) finish(summary *CycleSummary, log zerolog.Logger) {
	summary.FinishedAt = s.now()
	s.metrics.ObserveCycle("ok", summary.Duration())
	log.Info().
		Int("pending", summary.Pending).
		Int("snapshots", summary.Snapshots).
		Int("finished", summary.Finished).
		Int("anomalous", summary.Anomalous).
		Int("still_pending", summary.StillPending).
		Int("failed", summary.Failed).
		Int("errors", len(summary.Errors)).
		Dur("duration", summary.Duration()).
		Msg("reconciliation cycle complete")
}

func (s *ReconcileService) fail(summary *CycleSummary, txn *newrelic.Transaction, err error) error {
	s.metrics.ObserveCycle("failed", s.now().Sub(summary.StartedAt))
	txn.NoticeError(err)
	s.logger.Error().Err(err).Str("cycle_id", summary.ID).Msg("reconciliation cycle failed")
	return err
}
