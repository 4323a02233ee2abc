package domain

import "strings"

// DriverState represents the employment state of a driver.
type DriverState string

const (
	DriverStateActive   DriverState = "active"
	DriverStateInactive DriverState = "inactive"
)

// Driver is the reference record of a driver. Reconciliation only reads it.
type Driver struct {
	TaxibeeID       int64
	BoltDriverUUID  string
	BoltPartnerUUID string
	FullName        string
	Phone           string
	Email           string
	ExactDebnr      string
	State           DriverState
	CompanyID       string
}

// DisplayName returns the name to print on invoices.
func (d *Driver) DisplayName() string {
	if d == nil {
		return UnknownDriverName
	}
	if name := strings.TrimSpace(d.FullName); name != "" {
		return name
	}
	return UnknownDriverName
}
