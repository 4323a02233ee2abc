package postgres

import (
	"context"
	"database/sql"
	"time"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
)

// PendingOrderRepository is a PostgreSQL implementation of
// repository.PendingOrderRepository backed by in_progress_orders.
type PendingOrderRepository struct {
	q Querier
}

// NewPendingOrderRepository creates a new PostgreSQL pending order repository.
func NewPendingOrderRepository(db *sql.DB) *PendingOrderRepository {
	return &PendingOrderRepository{q: db}
}

// NewPendingOrderRepositoryWithTx creates a pending order repository using a transaction.
func NewPendingOrderRepositoryWithTx(tx *sql.Tx) *PendingOrderRepository {
	return &PendingOrderRepository{q: tx}
}

// List retrieves every pending order, oldest first.
func (r *PendingOrderRepository) List(ctx context.Context) ([]*domain.PendingOrder, error) {
	query := `SELECT ` + orderColumns + `, last_checked
		FROM in_progress_orders
		ORDER BY order_created_timestamp ASC NULLS LAST, order_reference`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.PendingOrder
	for rows.Next() {
		var order domain.PendingOrder
		var lastChecked sql.NullTime
		if err := scanOrderRecord(rows, &order.OrderRecord, &lastChecked); err != nil {
			return nil, err
		}
		if lastChecked.Valid {
			order.LastChecked = lastChecked.Time.UTC()
		}
		orders = append(orders, &order)
	}
	return orders, rows.Err()
}

// Touch records the latest upstream status and the time it was seen.
// last_checked is written in UTC so a column without time zone reads back
// the same instant.
func (r *PendingOrderRepository) Touch(ctx context.Context, orderRef string, status domain.OrderStatus, checkedAt time.Time) error {
	query := `UPDATE in_progress_orders SET order_status = $1, last_checked = $2 WHERE order_reference = $3`

	result, err := r.q.ExecContext(ctx, query, string(status), checkedAt.UTC(), orderRef)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes an order from the queue.
func (r *PendingOrderRepository) Delete(ctx context.Context, orderRef string) error {
	query := `DELETE FROM in_progress_orders WHERE order_reference = $1`

	result, err := r.q.ExecContext(ctx, query, orderRef)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
