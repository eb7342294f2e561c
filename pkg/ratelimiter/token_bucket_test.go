package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AcquireWithinCapacity(t *testing.T) {
	b := NewTokenBucket(10, 5)
	err := b.Acquire(context.Background(), 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, b.Tokens(), 0.5)
}

func TestTokenBucket_TryAcquireFailsWhenDrained(t *testing.T) {
	b := NewTokenBucket(2, 1)
	assert.True(t, b.TryAcquire(2))
	assert.False(t, b.TryAcquire(1))
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	b := NewTokenBucket(5, 50) // fast refill for a short test
	assert.True(t, b.TryAcquire(5))
	assert.False(t, b.TryAcquire(1))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, b.TryAcquire(1))
}

func TestSheetsRateLimiter_ScalesBySafetyFactor(t *testing.T) {
	l := NewSheetsRateLimiter(0.5)
	assert.InDelta(t, 150.0, l.readsPerMinute.capacity, 0.001)
	assert.InDelta(t, 50.0, l.requestsPer100s.capacity, 0.001)
}

func TestSheetsRateLimiter_AcquireBlocksOnEitherBucket(t *testing.T) {
	l := NewSheetsRateLimiter(1.0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := l.Acquire(ctx, 2)
	require.NoError(t, err)
}
