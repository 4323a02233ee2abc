package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
)

// LedgerRepository is a PostgreSQL implementation of
// repository.LedgerRepository backed by the exact_debnr table.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

const ledgerColumns = `bolt_driver_uuid, driver_name, COALESCE(exact_debnr_number, ''),
	ride_price_sum, commission_bolt, commission_tc, tips_bolt, tips_mypos,
	card_received, cash_received, card_terminal_value`

// GetForUpdate retrieves a driver's ledger row and locks it until the
// transaction ends.
func (r *LedgerRepository) GetForUpdate(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM exact_debnr WHERE bolt_driver_uuid = $1 FOR UPDATE`
	return scanLedger(r.q.QueryRowContext(ctx, query, driverUUID))
}

// Get retrieves a driver's ledger row.
func (r *LedgerRepository) Get(ctx context.Context, driverUUID string) (*domain.DriverLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM exact_debnr WHERE bolt_driver_uuid = $1`
	return scanLedger(r.q.QueryRowContext(ctx, query, driverUUID))
}

// GetAll retrieves every ledger row.
func (r *LedgerRepository) GetAll(ctx context.Context) ([]*domain.DriverLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM exact_debnr ORDER BY driver_name, bolt_driver_uuid`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []*domain.DriverLedger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}
	return ledgers, rows.Err()
}

// Upsert creates or overwrites a driver's ledger row.
func (r *LedgerRepository) Upsert(ctx context.Context, l *domain.DriverLedger) error {
	query := `
		INSERT INTO exact_debnr (
			bolt_driver_uuid, driver_name, exact_debnr_number,
			ride_price_sum, commission_bolt, commission_tc, tips_bolt, tips_mypos,
			card_received, cash_received, card_terminal_value
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (bolt_driver_uuid) DO UPDATE SET
			driver_name = EXCLUDED.driver_name,
			exact_debnr_number = EXCLUDED.exact_debnr_number,
			ride_price_sum = EXCLUDED.ride_price_sum,
			commission_bolt = EXCLUDED.commission_bolt,
			commission_tc = EXCLUDED.commission_tc,
			tips_bolt = EXCLUDED.tips_bolt,
			tips_mypos = EXCLUDED.tips_mypos,
			card_received = EXCLUDED.card_received,
			cash_received = EXCLUDED.cash_received,
			card_terminal_value = EXCLUDED.card_terminal_value
	`

	_, err := r.q.ExecContext(ctx, query,
		l.DriverUUID,
		l.DriverName,
		l.AccountingCode,
		l.RidePriceSum,
		l.CommissionBolt,
		l.CommissionTC,
		l.TipsBolt,
		l.TipsMyPOS,
		l.CardReceived,
		l.CashReceived,
		l.CardTerminalValue,
	)

	return err
}

func scanLedger(s rowScanner) (*domain.DriverLedger, error) {
	var l domain.DriverLedger
	err := s.Scan(
		&l.DriverUUID,
		&l.DriverName,
		&l.AccountingCode,
		&l.RidePriceSum,
		&l.CommissionBolt,
		&l.CommissionTC,
		&l.TipsBolt,
		&l.TipsMyPOS,
		&l.CardReceived,
		&l.CashReceived,
		&l.CardTerminalValue,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
