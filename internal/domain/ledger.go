package domain

// CommissionTCRate is the share of the ride price sum kept as TC commission.
const CommissionTCRate = 0.25

// UnknownDriverName is used when the driver record has no name.
const UnknownDriverName = "Unknown"

// DriverLedger holds the cumulative financial totals of one driver.
type DriverLedger struct {
	DriverUUID     string
	DriverName     string
	AccountingCode string // exact debnr; empty is stored as NULL

	RidePriceSum      float64
	CommissionBolt    float64
	CommissionTC      float64 // always RidePriceSum * CommissionTCRate
	TipsBolt          float64
	TipsMyPOS         float64 // filled by the MyPOS import, not by reconciliation
	CardReceived      float64 // filled by the MyPOS import
	CashReceived      float64 // filled by the MyPOS import
	CardTerminalValue float64
}

// LedgerDelta is what a single finished order contributes to a ledger.
type LedgerDelta struct {
	RidePrice    float64
	Commission   float64
	Tips         float64
	CardTerminal bool
}

// DeltaFromOrder derives the ledger contribution of a finished order.
func DeltaFromOrder(order OrderRecord) LedgerDelta {
	return LedgerDelta{
		RidePrice:    order.Fare.RidePrice - order.Fare.InAppDiscount,
		Commission:   order.Fare.Commission,
		Tips:         order.Fare.Tip,
		CardTerminal: order.PaymentMethod == PaymentMethodCardTerminal,
	}
}

// NewDriverLedger opens a ledger row from the first finished order of a driver.
func NewDriverLedger(driverUUID, driverName, accountingCode string, d LedgerDelta) *DriverLedger {
	if driverName == "" {
		driverName = UnknownDriverName
	}
	l := &DriverLedger{
		DriverUUID:     driverUUID,
		DriverName:     driverName,
		AccountingCode: accountingCode,
	}
	l.Apply(d)
	return l
}

// Apply adds a delta to the running totals and re-derives CommissionTC from
// the new sum rather than adding to it.
func (l *DriverLedger) Apply(d LedgerDelta) {
	l.RidePriceSum += d.RidePrice
	l.TipsBolt += d.Tips
	l.CommissionBolt += d.Commission
	if d.CardTerminal {
		l.CardTerminalValue += d.RidePrice
	}
	l.CommissionTC = l.RidePriceSum * CommissionTCRate
}
