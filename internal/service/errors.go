package service

import "errors"

var (
	// ErrUpstreamUnavailable is returned when the fleet API could not be
	// queried. The whole cycle is aborted before any order is touched.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMissingDriverReference is recorded when a finished order has no
	// driver record. The order still finishes; its ledger update is skipped.
	ErrMissingDriverReference = errors.New("missing driver reference")

	// ErrMalformedSnapshot is recorded for upstream orders without a reference.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrPersistence is returned when an order transaction fails. The order
	// stays pending and is retried next cycle.
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicateOrder is recorded when a finished record already exists for
	// a pending order. The pending row is dropped and the ledger left alone.
	ErrDuplicateOrder = errors.New("order already finished")

	// ErrCycleInProgress is returned when another replica holds the cycle lock.
	ErrCycleInProgress = errors.New("reconciliation cycle already in progress")

	// ErrDriverBusy is returned when another replica is updating the driver's ledger.
	ErrDriverBusy = errors.New("driver ledger locked by another reconciler")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")
)
