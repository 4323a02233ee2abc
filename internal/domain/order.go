package domain

import "time"

// OrderStatus is the status string reported by the fleet API.
type OrderStatus string

// OrderStatusFinished is the only upstream status that can promote an order.
const OrderStatusFinished OrderStatus = "finished"

// PaymentMethod represents how the rider paid for an order.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodInApp        PaymentMethod = "in_app"
	PaymentMethodCardTerminal PaymentMethod = "card_terminal"
)

// Fare is the fare breakdown of an order. Absent values are stored as 0.
type Fare struct {
	RidePrice       float64
	BookingFee      float64
	TollFee         float64
	Tip             float64
	CashDiscount    float64
	Commission      float64
	InAppDiscount   float64
	NetEarnings     float64
	CancellationFee float64
}

// Settled reports whether the upstream has priced the ride.
func (f Fare) Settled() bool {
	return f.RidePrice != 0
}

// Timestamps holds the lifecycle moments of an order. Zero means unknown.
type Timestamps struct {
	Created          time.Time
	Accepted         time.Time
	Pickup           time.Time
	Dropoff          time.Time
	Finished         time.Time
	PaymentConfirmed time.Time
}

// OrderRecord is the attribute set shared by pending and terminal orders.
type OrderRecord struct {
	OrderReference      string
	DriverName          string
	DriverUUID          string
	PaymentMethod       PaymentMethod
	Status              OrderStatus
	VehicleModel        string
	VehicleLicensePlate string
	TerminalName        string // matches MyPOS terminal transactions
	PickupAddress       string
	RideDistance        int // meters
	Timestamps          Timestamps
	Fare                Fare
}

// PendingOrder is an order waiting in the in-progress queue.
type PendingOrder struct {
	OrderRecord

	// LastChecked is the last time an upstream status was recorded for the
	// order. Zero until the first status update.
	LastChecked time.Time
}

// TerminalKind tells which terminal table an order lands in.
type TerminalKind string

const (
	TerminalFinished  TerminalKind = "FINISHED"
	TerminalAnomalous TerminalKind = "ANOMALOUS"
)

// TerminalRecordVersion is bumped whenever the projection below changes shape.
const TerminalRecordVersion = 1

// TerminalOrder is the immutable record written once an order leaves the
// pending queue, either as finished or as anomalous.
type TerminalOrder struct {
	OrderRecord
	Kind TerminalKind
	// RecordVersion stays in memory; the terminal tables have no column for it.
	RecordVersion int
}

// NewTerminalOrder projects a pending order onto a terminal record. Every
// attribute except LastChecked is carried through OrderRecord.
func NewTerminalOrder(kind TerminalKind, order PendingOrder) TerminalOrder {
	return TerminalOrder{
		OrderRecord:   order.OrderRecord,
		Kind:          kind,
		RecordVersion: TerminalRecordVersion,
	}
}
