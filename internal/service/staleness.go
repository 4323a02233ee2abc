package service

import "time"

// DefaultStaleAfter is how long an order may go without a status update
// before it is retired as anomalous.
const DefaultStaleAfter = 2 * time.Hour

// IsStale reports whether an order last checked at lastChecked should be
// force-retired at now. An order that was never checked is never stale.
func IsStale(lastChecked, now time.Time, threshold time.Duration) bool {
	if lastChecked.IsZero() {
		return false
	}
	return now.Sub(lastChecked) > threshold
}
