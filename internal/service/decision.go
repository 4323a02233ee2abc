package service

import (
	"time"

	"fleetrecon/internal/domain"
)

// Outcome is the state a pending order moves to in one cycle.
type Outcome string

const (
	OutcomeFinished     Outcome = "FINISHED"
	OutcomeAnomalous    Outcome = "ANOMALOUS"
	OutcomeStillPending Outcome = "STILL_PENDING"
)

// PendingReason explains why an order stays pending.
type PendingReason string

const (
	ReasonNotFound      PendingReason = "not_found"
	ReasonFareUnsettled PendingReason = "fare_unsettled"
	ReasonInProgress    PendingReason = "in_progress"
)

// Decision is the effect to apply to one pending order.
type Decision struct {
	Outcome Outcome
	Reason  PendingReason

	// Touch asks for Status and last_checked to be recorded on the pending row.
	Touch  bool
	Status domain.OrderStatus

	// Terminal is the record to write for FINISHED and ANOMALOUS outcomes.
	Terminal *domain.TerminalOrder
}

// Decide picks the next state of a pending order given its upstream
// snapshot (nil when the upstream did not report it). Rules are applied in
// order and the first match wins:
//
//  1. stale orders are retired as anomalous, whatever the upstream says;
//  2. orders missing upstream stay pending untouched;
//  3. finished orders are promoted once their ride price is known, and
//     otherwise stay pending with last_checked bumped;
//  4. any other status keeps the order pending with last_checked bumped.
func Decide(order domain.PendingOrder, snap *domain.OrderSnapshot, now time.Time, staleAfter time.Duration) Decision {
	if IsStale(order.LastChecked, now, staleAfter) {
		terminal := domain.NewTerminalOrder(domain.TerminalAnomalous, order)
		return Decision{Outcome: OutcomeAnomalous, Terminal: &terminal}
	}

	if snap == nil || snap.Status == "" {
		return Decision{Outcome: OutcomeStillPending, Reason: ReasonNotFound}
	}

	if snap.Status != domain.OrderStatusFinished {
		return Decision{
			Outcome: OutcomeStillPending,
			Reason:  ReasonInProgress,
			Touch:   true,
			Status:  snap.Status,
		}
	}

	if !snap.Fare.Settled() {
		return Decision{
			Outcome: OutcomeStillPending,
			Reason:  ReasonFareUnsettled,
			Touch:   true,
			Status:  order.Status,
		}
	}

	finished := adoptSnapshot(order, *snap)
	terminal := domain.NewTerminalOrder(domain.TerminalFinished, finished)
	return Decision{Outcome: OutcomeFinished, Terminal: &terminal}
}

// adoptSnapshot returns a copy of order carrying the upstream's final
// status and fare. Known upstream timestamps replace local ones.
func adoptSnapshot(order domain.PendingOrder, snap domain.OrderSnapshot) domain.PendingOrder {
	order.Status = domain.OrderStatusFinished
	order.Fare = snap.Fare
	if order.PaymentMethod == "" {
		order.PaymentMethod = snap.PaymentMethod
	}

	ts := &order.Timestamps
	adoptTime(&ts.Created, snap.Timestamps.Created)
	adoptTime(&ts.Accepted, snap.Timestamps.Accepted)
	adoptTime(&ts.Pickup, snap.Timestamps.Pickup)
	adoptTime(&ts.Dropoff, snap.Timestamps.Dropoff)
	adoptTime(&ts.Finished, snap.Timestamps.Finished)
	adoptTime(&ts.PaymentConfirmed, snap.Timestamps.PaymentConfirmed)
	return order
}

func adoptTime(dst *time.Time, upstream time.Time) {
	if !upstream.IsZero() {
		*dst = upstream
	}
}
