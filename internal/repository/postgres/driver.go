package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// GetByBoltUUID retrieves a driver by its Bolt driver UUID.
func (r *DriverRepository) GetByBoltUUID(ctx context.Context, driverUUID string) (*domain.Driver, error) {
	query := `
		SELECT taxibee_id, COALESCE(bolt_driver_uuid, ''), COALESCE(bolt_partner_uuid, ''),
			COALESCE(full_name, ''), COALESCE(phone, ''), COALESCE(email, ''),
			COALESCE(exact_debnr, ''), COALESCE(state, ''), COALESCE(company_id, '')
		FROM drivers WHERE bolt_driver_uuid = $1
		LIMIT 1
	`

	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, driverUUID).Scan(
		&driver.TaxibeeID,
		&driver.BoltDriverUUID,
		&driver.BoltPartnerUUID,
		&driver.FullName,
		&driver.Phone,
		&driver.Email,
		&driver.ExactDebnr,
		&driver.State,
		&driver.CompanyID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &driver, nil
}
