package infra

import (
	"math"
	"time"
)

const (
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential delay for the given retry attempt,
// capped at one minute.
func CalculateBackoff(retryCount int) time.Duration {
	// 2^6 = 64s already exceeds the cap
	if retryCount > 6 {
		return maxRetryDelay
	}
	delay := baseRetryDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
