package repository

import "context"

// Stores groups the repositories that take part in one order transition.
type Stores struct {
	Pending  PendingOrderRepository
	Terminal TerminalOrderRepository
	Ledger   LedgerRepository
}

// Transactor runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
