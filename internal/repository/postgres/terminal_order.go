package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
)

// TerminalOrderRepository is a PostgreSQL implementation of
// repository.TerminalOrderRepository. Finished orders go to orders,
// anomalous ones to order_anomalies.
type TerminalOrderRepository struct {
	q Querier
}

// NewTerminalOrderRepository creates a new PostgreSQL terminal order repository.
func NewTerminalOrderRepository(db *sql.DB) *TerminalOrderRepository {
	return &TerminalOrderRepository{q: db}
}

// NewTerminalOrderRepositoryWithTx creates a terminal order repository using a transaction.
func NewTerminalOrderRepositoryWithTx(tx *sql.Tx) *TerminalOrderRepository {
	return &TerminalOrderRepository{q: tx}
}

// Insert writes a terminal record. The insert skips existing references so
// the surrounding transaction stays usable; a skipped insert is reported as
// repository.ErrAlreadyExists.
func (r *TerminalOrderRepository) Insert(ctx context.Context, order domain.TerminalOrder) error {
	table, err := terminalTable(order.Kind)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, insertTerminalQuery(table), orderRecordArgs(order.OrderRecord)...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

// insertTerminalQuery writes exactly the shared order columns; the
// terminal tables carry nothing else.
func insertTerminalQuery(table string) string {
	return `INSERT INTO ` + table + ` (` + orderColumns + `)
		VALUES (` + placeholders(1, orderColumnCount) + `)
		ON CONFLICT (order_reference) DO NOTHING`
}

func terminalTable(kind domain.TerminalKind) (string, error) {
	switch kind {
	case domain.TerminalFinished:
		return "orders", nil
	case domain.TerminalAnomalous:
		return "order_anomalies", nil
	default:
		return "", fmt.Errorf("unknown terminal kind %q", kind)
	}
}
