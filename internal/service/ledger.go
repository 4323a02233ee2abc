package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
)

// DriverLookup resolves a Bolt driver UUID to its driver record.
type DriverLookup interface {
	GetDriver(ctx context.Context, driverUUID string) (*domain.Driver, error)
}

// AccountingCodes maps driver UUIDs to accounting debtor codes.
type AccountingCodes interface {
	Lookup(driverUUID string) (string, bool)
}

// LedgerAggregator folds finished orders into per-driver ledgers.
type LedgerAggregator struct {
	drivers DriverLookup
	codes   AccountingCodes
}

// NewLedgerAggregator creates a new LedgerAggregator. codes may be nil.
func NewLedgerAggregator(drivers DriverLookup, codes AccountingCodes) *LedgerAggregator {
	return &LedgerAggregator{drivers: drivers, codes: codes}
}

// ApplyFinishedOrder adds one finished order to its driver's ledger, creating
// the ledger on the driver's first finished order. ledgers must be bound to
// the transaction that finishes the order so both commit together.
//
// Returns ErrMissingDriverReference when no driver record exists; the ledger
// is left untouched in that case.
func (a *LedgerAggregator) ApplyFinishedOrder(ctx context.Context, ledgers repository.LedgerRepository, order domain.OrderRecord) (*domain.DriverLedger, error) {
	if strings.TrimSpace(order.DriverUUID) == "" {
		return nil, fmt.Errorf("%w: order %s has no driver", ErrMissingDriverReference, order.OrderReference)
	}

	delta := domain.DeltaFromOrder(order)

	ledger, err := ledgers.GetForUpdate(ctx, order.DriverUUID)
	switch {
	case err == nil:
		ledger.Apply(delta)
	case errors.Is(err, repository.ErrNotFound):
		ledger, err = a.newLedger(ctx, order.DriverUUID, delta)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	if err := ledgers.Upsert(ctx, ledger); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}
	return ledger, nil
}

func (a *LedgerAggregator) newLedger(ctx context.Context, driverUUID string, delta domain.LedgerDelta) (*domain.DriverLedger, error) {
	driver, err := a.drivers.GetDriver(ctx, driverUUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: driver %s", ErrMissingDriverReference, driverUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("load driver: %w", err)
	}

	return domain.NewDriverLedger(driverUUID, driver.DisplayName(), a.accountingCode(driver), delta), nil
}

// accountingCode prefers the mapping file and falls back to the code stored
// on the driver record.
func (a *LedgerAggregator) accountingCode(driver *domain.Driver) string {
	if a.codes != nil {
		if code, ok := a.codes.Lookup(driver.BoltDriverUUID); ok {
			return code
		}
	}
	return strings.TrimSpace(driver.ExactDebnr)
}
