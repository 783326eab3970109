package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, maxBackoff, exponentialBackoff(40))
}

func TestConnectionErrorsAreRecognised(t *testing.T) {
	for _, msg := range []string{"connection refused", "connection closed", "unexpected EOF", "broken pipe", "use of closed network connection"} {
		assert.True(t, isConnectionError(errors.New(msg)), msg)
	}
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("PRECONDITION_FAILED - inequivalent arg 'type'")))
}

func state(c *Client) int32 { return atomic.LoadInt32(&c.state) }

// The breaker opens after maxFailures, lets one attempt through once
// openTimeout has passed, and closes again on success.
func TestBreakerLifecycle(t *testing.T) {
	c := &Client{}
	require.False(t, c.isCircuitOpen())

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	assert.Equal(t, StateClosed, state(c), "below the threshold")

	c.recordFailure()
	assert.Equal(t, StateOpen, state(c))
	assert.True(t, c.isCircuitOpen())

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, c.isCircuitOpen())
	assert.Equal(t, StateHalfOpen, state(c))

	c.recordSuccess()
	assert.Equal(t, StateClosed, state(c))
	assert.Zero(t, atomic.LoadInt64(&c.failureCount))
}

func TestHalfOpenFailureReopens(t *testing.T) {
	c := &Client{}
	atomic.StoreInt32(&c.state, StateHalfOpen)

	c.recordFailure()
	assert.Equal(t, StateOpen, state(c))
}

func TestPublishWhileOpenNamesRoutingKey(t *testing.T) {
	c := &Client{exchangeName: "rentals.events"}
	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()

	err := c.Publish(context.Background(), "transaction.approved", []byte(`{}`))
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "transaction.approved")
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	c := &Client{exchangeName: "rentals.events"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Publish(ctx, "auth.login", []byte(`{}`)), context.Canceled)
}
