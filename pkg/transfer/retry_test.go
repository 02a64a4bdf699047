package transfer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      500 * time.Millisecond,
	}

	assert.Equal(t, 100*time.Millisecond, policy.GetRetryDelay(0))
	assert.Equal(t, 200*time.Millisecond, policy.GetRetryDelay(1))
	assert.Equal(t, 400*time.Millisecond, policy.GetRetryDelay(2))
	assert.Equal(t, 500*time.Millisecond, policy.GetRetryDelay(3))
}

func TestRetryPolicy_IsRetryable(t *testing.T) {
	policy := DefaultRetryPolicy()
	connErr := fmt.Errorf("%w: dial: refused", ErrConnection)

	assert.True(t, policy.IsRetryable(connErr, 0))
	assert.False(t, policy.IsRetryable(connErr, policy.MaxRetries))
	assert.False(t, policy.IsRetryable(errors.New("other"), 0))
	assert.False(t, policy.IsRetryable(ErrMalformedMetadata, 0))
	assert.False(t, policy.IsRetryable(nil, 0))
}
