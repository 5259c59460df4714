package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(maxFailures uint32, cooldown time.Duration) *CircuitBreaker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWithLogger("test", maxFailures, cooldown, logger)
}

func TestExecute_Success(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestExecute_OpensAfterMaxFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	failing := func(ctx context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(context.Background(), failing))
	}

	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("should not be called while open")
		return nil
	})
	assert.True(t, IsOpenError(err))
}

func TestExecute_HalfOpenAfterCooldown(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	// A probe call is allowed through.
	called := false
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestExecute_RecoversAfterProbes(t *testing.T) {
	cb := newTestBreaker(1, time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	time.Sleep(5 * time.Millisecond)

	ok := func(ctx context.Context) error { return nil }
	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Execute(context.Background(), ok))
	}

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(1, time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	time.Sleep(5 * time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("still down")
	}))

	assert.Equal(t, StateOpen, cb.GetState())
}

func TestGetStats(t *testing.T) {
	cb := newTestBreaker(5, time.Minute)

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })

	stats := cb.GetStats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, uint32(2), stats.Requests)
	assert.Equal(t, uint32(1), stats.Successes)
	assert.Equal(t, uint32(1), stats.Failures)
}

func TestIsOpenError(t *testing.T) {
	assert.True(t, IsOpenError(&OpenError{Name: "x", State: StateOpen}))
	assert.False(t, IsOpenError(errors.New("other")))
	assert.False(t, IsOpenError(nil))
}
