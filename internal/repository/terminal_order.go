package repository

import (
	"context"

	"fleetrecon/internal/domain"
)

// TerminalOrderRepository writes finished and anomalous order records.
type TerminalOrderRepository interface {
	// Insert writes the record into the table matching its kind.
	// Returns ErrAlreadyExists if the reference was already written.
	Insert(ctx context.Context, order domain.TerminalOrder) error
}
