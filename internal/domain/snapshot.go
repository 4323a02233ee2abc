package domain

// OrderSnapshot is the upstream view of one order at poll time. It only
// lives for the duration of a reconciliation cycle.
type OrderSnapshot struct {
	OrderReference string
	Status         OrderStatus
	DriverUUID     string
	PaymentMethod  PaymentMethod
	Fare           Fare
	Timestamps     Timestamps
}

// Valid reports whether the snapshot carries its identifying key.
func (s OrderSnapshot) Valid() bool {
	return s.OrderReference != ""
}
