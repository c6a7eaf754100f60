// internal/delivery/backoff.go

// Package delivery consumes notification IDs from the queue and drives each
// one through the PROCESSING -> SENT | FAILED transition, including provider
// dispatch, retry scheduling and dead-lettering.
package delivery

import "time"

const (
	// BackoffBase is the unit delay doubled per attempt.
	BackoffBase = time.Second

	// BackoffCap bounds the exponential growth.
	BackoffCap = 5 * time.Minute
)

// Backoff returns the delay before the attempt numbered retryCount.
// retryCount counts attempts already made, so the first retry (retryCount 1)
// waits 2s, then 4s, 8s and so on up to the cap.
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 30 {
		return BackoffCap
	}
	d := BackoffBase << uint(retryCount)
	if d > BackoffCap {
		return BackoffCap
	}
	return d
}
