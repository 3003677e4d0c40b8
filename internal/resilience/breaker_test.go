package resilience

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingCall() error { return fmt.Errorf("collaborator down") }

func successCall() error { return nil }

// TestBreaker_OpensAfterConsecutiveFailures tests the closed-to-open transition
func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	breaker := NewBreaker("execution", BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	})

	for i := 0; i < 2; i++ {
		assert.Error(t, breaker.Call(failingCall))
		assert.Equal(t, BreakerClosed, breaker.State())
	}

	assert.Error(t, breaker.Call(failingCall))
	assert.Equal(t, BreakerOpen, breaker.State())

	err := breaker.Call(successCall)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

// TestBreaker_SuccessResetsFailureStreak tests that the failure count is a
// consecutive streak, not a lifetime total
func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	breaker := NewBreaker("execution", BreakerConfig{FailureThreshold: 3})

	assert.Error(t, breaker.Call(failingCall))
	assert.Error(t, breaker.Call(failingCall))
	assert.NoError(t, breaker.Call(successCall))
	assert.Error(t, breaker.Call(failingCall))
	assert.Error(t, breaker.Call(failingCall))

	assert.Equal(t, BreakerClosed, breaker.State())
}

// TestBreaker_ProbesAfterOpenTimeout tests the open-to-half-open-to-closed recovery
func TestBreaker_ProbesAfterOpenTimeout(t *testing.T) {
	breaker := NewBreaker("execution", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      20 * time.Millisecond,
	})

	assert.Error(t, breaker.Call(failingCall))
	assert.Equal(t, BreakerOpen, breaker.State())

	time.Sleep(30 * time.Millisecond)

	assert.NoError(t, breaker.Call(successCall))
	assert.Equal(t, BreakerHalfOpen, breaker.State())
	assert.NoError(t, breaker.Call(successCall))
	assert.Equal(t, BreakerClosed, breaker.State())
}

// TestBreaker_FailedProbeReopens tests the half-open-to-open transition
func TestBreaker_FailedProbeReopens(t *testing.T) {
	breaker := NewBreaker("execution", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      20 * time.Millisecond,
	})

	assert.Error(t, breaker.Call(failingCall))
	time.Sleep(30 * time.Millisecond)

	assert.Error(t, breaker.Call(failingCall))
	assert.Equal(t, BreakerOpen, breaker.State())
}

// TestBreaker_ResetForcesClosed tests the manual reset escape hatch
func TestBreaker_ResetForcesClosed(t *testing.T) {
	breaker := NewBreaker("execution", BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})

	assert.Error(t, breaker.Call(failingCall))
	assert.Equal(t, BreakerOpen, breaker.State())

	breaker.Reset()
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.NoError(t, breaker.Call(successCall))
}

// TestBreakerSet_GetOrCreateReturnsSameInstance tests per-name breaker identity
func TestBreakerSet_GetOrCreateReturnsSameInstance(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})

	first := set.GetOrCreate("execution")
	second := set.GetOrCreate("execution")
	other := set.GetOrCreate("patterns")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

// TestBreakerSet_OpenBreakers tests the open-breaker listing
func TestBreakerSet_OpenBreakers(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})

	assert.NoError(t, set.GetOrCreate("patterns").Call(successCall))
	assert.Error(t, set.GetOrCreate("execution").Call(failingCall))

	open := set.OpenBreakers()
	require.Len(t, open, 1)
	assert.Equal(t, "execution", open[0])
	assert.Len(t, set.Stats(), 2)
}

// TestLimiter_ExhaustsAndRefills tests the token-bucket accounting
func TestLimiter_ExhaustsAndRefills(t *testing.T) {
	limiter := NewLimiter("admin-notify", 2, 1)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
	assert.Equal(t, 0, limiter.Tokens())
}

// TestLimiter_AllowN tests batched acquisition
func TestLimiter_AllowN(t *testing.T) {
	limiter := NewLimiter("admin-notify", 5, 1)

	assert.True(t, limiter.AllowN(3))
	assert.False(t, limiter.AllowN(3))
	assert.True(t, limiter.AllowN(2))
	assert.False(t, limiter.Allow())
}

// TestLimiter_DefaultsOnZeroConfig tests the constructor floor values
func TestLimiter_DefaultsOnZeroConfig(t *testing.T) {
	limiter := NewLimiter("admin-notify", 0, 0)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}
