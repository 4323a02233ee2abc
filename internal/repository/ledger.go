package repository

import (
	"context"

	"fleetrecon/internal/domain"
)

// LedgerRepository defines the persistence operations for driver ledgers.
type LedgerRepository interface {
	// GetForUpdate retrieves a driver's ledger row and locks it for the
	// rest of the transaction.
	GetForUpdate(ctx context.Context, driverUUID string) (*domain.DriverLedger, error)

	// Upsert creates or overwrites a driver's ledger row.
	Upsert(ctx context.Context, ledger *domain.DriverLedger) error

	// Get retrieves a driver's ledger row without locking.
	Get(ctx context.Context, driverUUID string) (*domain.DriverLedger, error)

	// GetAll retrieves every ledger row.
	GetAll(ctx context.Context) ([]*domain.DriverLedger, error)
}
