package service

import (
	"testing"
	"time"

	"fleetrecon/internal/domain"
)

var decideNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func pending(ref string, lastChecked time.Time) domain.PendingOrder {
	return domain.PendingOrder{
		OrderRecord: domain.OrderRecord{
			OrderReference: ref,
			DriverUUID:     "D1",
			PaymentMethod:  domain.PaymentMethodCash,
			Status:         "driver_on_way",
			Fare:           domain.Fare{RidePrice: 9},
		},
		LastChecked: lastChecked,
	}
}

func snapshot(ref string, status domain.OrderStatus, ridePrice float64) *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		OrderReference: ref,
		Status:         status,
		Fare:           domain.Fare{RidePrice: ridePrice, Tip: 1},
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	fresh := decideNow.Add(-10 * time.Minute)
	stale := decideNow.Add(-3 * time.Hour)

	tests := []struct {
		name        string
		order       domain.PendingOrder
		snap        *domain.OrderSnapshot
		wantOutcome Outcome
		wantReason  PendingReason
		wantTouch   bool
		wantStatus  domain.OrderStatus
	}{
		{
			name:        "missing upstream stays untouched",
			order:       pending("REF-1", fresh),
			wantOutcome: OutcomeStillPending,
			wantReason:  ReasonNotFound,
		},
		{
			name:        "empty upstream status treated as missing",
			order:       pending("REF-1", fresh),
			snap:        snapshot("REF-1", "", 10),
			wantOutcome: OutcomeStillPending,
			wantReason:  ReasonNotFound,
		},
		{
			name:        "stale wins over finished",
			order:       pending("REF-2", stale),
			snap:        snapshot("REF-2", domain.OrderStatusFinished, 10),
			wantOutcome: OutcomeAnomalous,
		},
		{
			name:        "stale without snapshot",
			order:       pending("REF-2", stale),
			wantOutcome: OutcomeAnomalous,
		},
		{
			name:        "finished with price promotes",
			order:       pending("REF-3", fresh),
			snap:        snapshot("REF-3", domain.OrderStatusFinished, 12.5),
			wantOutcome: OutcomeFinished,
		},
		{
			name:        "never checked order can finish",
			order:       pending("REF-3", time.Time{}),
			snap:        snapshot("REF-3", domain.OrderStatusFinished, 12.5),
			wantOutcome: OutcomeFinished,
		},
		{
			name:        "finished with zero price waits for fare",
			order:       pending("REF-4", fresh),
			snap:        snapshot("REF-4", domain.OrderStatusFinished, 0),
			wantOutcome: OutcomeStillPending,
			wantReason:  ReasonFareUnsettled,
			wantTouch:   true,
			wantStatus:  "driver_on_way",
		},
		{
			name:        "active status records upstream status",
			order:       pending("REF-5", fresh),
			snap:        snapshot("REF-5", "driver_did_not_respond", 0),
			wantOutcome: OutcomeStillPending,
			wantReason:  ReasonInProgress,
			wantTouch:   true,
			wantStatus:  "driver_did_not_respond",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.order, tt.snap, decideNow, DefaultStaleAfter)
			if d.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", d.Outcome, tt.wantOutcome)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Touch != tt.wantTouch {
				t.Errorf("touch = %v, want %v", d.Touch, tt.wantTouch)
			}
			if tt.wantTouch && d.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", d.Status, tt.wantStatus)
			}
			if (d.Terminal != nil) != (tt.wantOutcome != OutcomeStillPending) {
				t.Errorf("terminal record presence mismatch: %+v", d.Terminal)
			}
		})
	}
}

func TestDecide_FinishedAdoptsUpstreamFare(t *testing.T) {
	t.Parallel()

	order := pending("REF-1", decideNow.Add(-time.Minute))
	order.Timestamps.Created = decideNow.Add(-time.Hour)
	snap := snapshot("REF-1", domain.OrderStatusFinished, 18)
	snap.Fare.InAppDiscount = 2
	snap.Timestamps.Finished = decideNow.Add(-5 * time.Minute)

	d := Decide(order, snap, decideNow, DefaultStaleAfter)
	if d.Outcome != OutcomeFinished {
		t.Fatalf("expected finished, got %s", d.Outcome)
	}

	rec := d.Terminal
	if rec.Kind != domain.TerminalFinished || rec.Status != domain.OrderStatusFinished {
		t.Errorf("unexpected terminal record %+v", rec)
	}
	if rec.Fare.RidePrice != 18 || rec.Fare.InAppDiscount != 2 || rec.Fare.Tip != 1 {
		t.Errorf("upstream fare not adopted: %+v", rec.Fare)
	}
	if !rec.Timestamps.Created.Equal(order.Timestamps.Created) {
		t.Error("local created time should survive when upstream has none")
	}
	if !rec.Timestamps.Finished.Equal(snap.Timestamps.Finished) {
		t.Error("upstream finished time should be adopted")
	}
	if order.Status == domain.OrderStatusFinished {
		t.Error("Decide must not mutate its input")
	}
}

func TestDecide_AnomalousKeepsLocalState(t *testing.T) {
	t.Parallel()

	order := pending("REF-2", decideNow.Add(-3*time.Hour))
	d := Decide(order, snapshot("REF-2", domain.OrderStatusFinished, 50), decideNow, DefaultStaleAfter)

	if d.Terminal.Kind != domain.TerminalAnomalous {
		t.Fatalf("expected anomaly record, got %s", d.Terminal.Kind)
	}
	if d.Terminal.Fare.RidePrice != 9 || d.Terminal.Status != "driver_on_way" {
		t.Errorf("anomaly must carry the local order as-is: %+v", d.Terminal.OrderRecord)
	}
}
