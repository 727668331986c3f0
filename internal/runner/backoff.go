package runner

import (
	"math"
	"time"

	"pipewright/flowkit/pkg/types"
)

const (
	// DefaultMaxAttempts applies when a retry config sets no limit.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay applies when a retry config sets no delay.
	DefaultRetryDelay = time.Second
)

// CalculateBackoffDelay returns the wait before the next retry attempt.
// attempt is 1-based (the attempt that just failed).
func CalculateBackoffDelay(baseDelay time.Duration, attempt int, backoff types.BackoffType, maxDelay time.Duration) time.Duration {
	var delay time.Duration

	switch backoff {
	case types.BackoffExponential:
		delay = baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = baseDelay
	}

	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
