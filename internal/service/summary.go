package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CycleSummary reports what one reconciliation cycle did.
type CycleSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	Pending      int `json:"pending"`
	Snapshots    int `json:"snapshots"`
	Finished     int `json:"finished"`
	Anomalous    int `json:"anomalous"`
	StillPending int `json:"still_pending"`
	Failed       int `json:"failed"`

	// Errors holds one entry per order that hit a problem, plus one per
	// malformed upstream record.
	Errors []string `json:"errors"`

	mu sync.Mutex
}

func newCycleSummary(startedAt time.Time) *CycleSummary {
	return &CycleSummary{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Errors:    []string{},
	}
}

// Duration is the wall time of the cycle.
func (s *CycleSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Processed is the number of pending orders that were decided on.
func (s *CycleSummary) Processed() int {
	return s.Finished + s.Anomalous + s.StillPending + s.Failed
}

// orderResult is the outcome of processing one pending order.
type orderResult struct {
	ref     string
	outcome Outcome

	// err is set when the order's transaction failed and it stays pending.
	err error
	// notes are problems that did not stop the order from moving on.
	notes []error
}

func (s *CycleSummary) record(r orderResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.err != nil {
		s.Failed++
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", r.ref, r.err))
		return
	}

	switch r.outcome {
	case OutcomeFinished:
		s.Finished++
	case OutcomeAnomalous:
		s.Anomalous++
	default:
		s.StillPending++
	}
	for _, note := range r.notes {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", r.ref, note))
	}
}

func (s *CycleSummary) addError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, err.Error())
}

// issueKind labels an error for the issues metric.
func issueKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingDriverReference):
		return "missing_driver"
	case errors.Is(err, ErrMalformedSnapshot):
		return "malformed_snapshot"
	case errors.Is(err, ErrDuplicateOrder):
		return "duplicate"
	case errors.Is(err, ErrDriverBusy):
		return "driver_busy"
	default:
		return "persistence"
	}
}
