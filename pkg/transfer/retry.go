package transfer

import (
	"errors"
	"time"
)

// RetryPolicy defines how often a failed dial is retried
type RetryPolicy struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxDelay      time.Duration `json:"max_delay"`
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    2,
		InitialDelay:  200 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      2 * time.Second,
	}
}

// GetRetryDelay calculates the delay before the next retry attempt
func (rp *RetryPolicy) GetRetryDelay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return rp.InitialDelay
	}

	delay := rp.InitialDelay
	for i := 0; i < retryCount; i++ {
		delay = time.Duration(float64(delay) * rp.BackoffFactor)
		if delay > rp.MaxDelay {
			return rp.MaxDelay
		}
	}
	return delay
}

// IsRetryable reports whether err may go away on another attempt.
// Only connection errors qualify; everything else is final.
func (rp *RetryPolicy) IsRetryable(err error, retryCount int) bool {
	if err == nil || retryCount >= rp.MaxRetries {
		return false
	}
	return errors.Is(err, ErrConnection)
}
