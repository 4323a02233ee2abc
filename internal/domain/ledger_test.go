package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeltaFromOrder_SubtractsInAppDiscount(t *testing.T) {
	t.Parallel()

	d := DeltaFromOrder(OrderRecord{
		PaymentMethod: PaymentMethodInApp,
		Fare:          Fare{RidePrice: 20, InAppDiscount: 3, Commission: 5, Tip: 2},
	})

	if !almostEqual(d.RidePrice, 17) {
		t.Errorf("expected ride price 17, got %v", d.RidePrice)
	}
	if d.Commission != 5 || d.Tips != 2 {
		t.Errorf("unexpected delta %+v", d)
	}
	if d.CardTerminal {
		t.Error("in-app order must not count as card terminal")
	}
}

func TestDriverLedger_CardTerminalOrdersAccumulate(t *testing.T) {
	t.Parallel()

	first := DeltaFromOrder(OrderRecord{PaymentMethod: PaymentMethodCardTerminal, Fare: Fare{RidePrice: 20}})
	second := DeltaFromOrder(OrderRecord{PaymentMethod: PaymentMethodCardTerminal, Fare: Fare{RidePrice: 15}})

	l := NewDriverLedger("D1", "Alice", "", first)
	l.Apply(second)

	if !almostEqual(l.RidePriceSum, 35) {
		t.Errorf("expected ride price sum 35, got %v", l.RidePriceSum)
	}
	if !almostEqual(l.CardTerminalValue, 35) {
		t.Errorf("expected card terminal value 35, got %v", l.CardTerminalValue)
	}
	if !almostEqual(l.CommissionTC, 8.75) {
		t.Errorf("expected commission_tc 8.75, got %v", l.CommissionTC)
	}
}

func TestDriverLedger_CommissionTCTracksSum(t *testing.T) {
	t.Parallel()

	l := NewDriverLedger("D1", "", "", LedgerDelta{RidePrice: 10})
	l.Apply(LedgerDelta{RidePrice: 7.5})
	l.Apply(LedgerDelta{RidePrice: -2.5})

	if !almostEqual(l.CommissionTC, l.RidePriceSum*CommissionTCRate) {
		t.Errorf("commission_tc %v out of step with sum %v", l.CommissionTC, l.RidePriceSum)
	}
	if l.DriverName != UnknownDriverName {
		t.Errorf("expected placeholder name, got %q", l.DriverName)
	}
}

func TestDriverLedger_ApplyTwiceDoubles(t *testing.T) {
	t.Parallel()

	d := LedgerDelta{RidePrice: 12, Commission: 3, Tips: 1}
	l := NewDriverLedger("D1", "Bob", "", d)
	l.Apply(d)

	if !almostEqual(l.RidePriceSum, 24) || !almostEqual(l.CommissionBolt, 6) || !almostEqual(l.TipsBolt, 2) {
		t.Errorf("unexpected totals after double apply %+v", l)
	}
	if l.CardTerminalValue != 0 {
		t.Errorf("non card-terminal orders must not add card value, got %v", l.CardTerminalValue)
	}
}

func TestNewTerminalOrder_StampsKindAndVersion(t *testing.T) {
	t.Parallel()

	order := PendingOrder{OrderRecord: OrderRecord{OrderReference: "REF-1", DriverUUID: "D1"}}
	rec := NewTerminalOrder(TerminalAnomalous, order)

	if rec.Kind != TerminalAnomalous || rec.RecordVersion != TerminalRecordVersion {
		t.Errorf("unexpected terminal record %+v", rec)
	}
	if rec.OrderReference != "REF-1" || rec.DriverUUID != "D1" {
		t.Errorf("order attributes not carried over: %+v", rec.OrderRecord)
	}
}
