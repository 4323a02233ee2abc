package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleetrecon/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier               = (*sql.DB)(nil)
	_ Querier               = (*sql.Tx)(nil)
	_ repository.Transactor = (*Transactor)(nil)
)

// Transactor runs order transitions in a database transaction with
// transaction-scoped repositories.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx begins a transaction, hands tx-scoped stores to fn and commits if
// fn succeeds. Any error rolls the whole transaction back.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stores := repository.Stores{
		Pending:  NewPendingOrderRepositoryWithTx(tx),
		Terminal: NewTerminalOrderRepositoryWithTx(tx),
		Ledger:   NewLedgerRepositoryWithTx(tx),
	}

	if err = fn(ctx, stores); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
