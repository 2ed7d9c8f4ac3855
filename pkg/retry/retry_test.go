package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// do runs fn through DoWithResult for tests that only care about the error.
func do(ctx context.Context, cfg *Config, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("expected InitialDelay=1s, got %v", cfg.InitialDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
	if cfg.JitterFactor != 0 {
		t.Errorf("expected no jitter, got %f", cfg.JitterFactor)
	}
}

func TestDoWithResult_Success(t *testing.T) {
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}

	callCount := 0
	err := do(context.Background(), cfg, func(ctx context.Context) error {
		callCount++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestDoWithResult_SuccessAfterRetries(t *testing.T) {
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}

	callCount := 0
	err := do(context.Background(), cfg, func(ctx context.Context) error {
		callCount++
		if callCount < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestDoWithResult_MaxRetriesExhausted(t *testing.T) {
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}
	expected := errors.New("persistent error")

	callCount := 0
	err := do(context.Background(), cfg, func(ctx context.Context) error {
		callCount++
		return expected
	})

	assert.ErrorIs(t, err, expected)
	assert.Equal(t, 4, callCount, "one initial call plus three retries")
}

func TestDoWithResult_BackoffDoublesEachAttempt(t *testing.T) {
	var mu sync.Mutex
	var delays []time.Duration
	var attempts []int

	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	}

	_ = do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("fail")
	})

	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestDoWithResult_MaxDelayCapsBackoff(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxRetries:   4,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		},
	}

	_ = do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("fail")
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDoWithResult_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Hour, Multiplier: 2.0}

	callCount := 0
	start := time.Now()
	err := do(ctx, cfg, func(ctx context.Context) error {
		callCount++
		cancel()
		return errors.New("fail")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, callCount)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	cfg := &Config{MaxRetries: 2, InitialDelay: time.Millisecond, Multiplier: 2.0}

	callCount := 0
	result, err := DoWithResult(context.Background(), cfg, func(ctx context.Context) ([]float32, error) {
		callCount++
		if callCount == 1 {
			return nil, errors.New("503 service unavailable")
		}
		return []float32{1, 2, 3}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, result)
	assert.Equal(t, 2, callCount)
}

func TestDoWithResult_StopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("401 unauthorized")
	retried := 0
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: time.Hour,
		Multiplier:   2.0,
		Retryable:    func(err error) bool { return !errors.Is(err, permanent) },
		OnRetry:      func(int, time.Duration, error) { retried++ },
	}

	callCount := 0
	start := time.Now()
	err := do(context.Background(), cfg, func(ctx context.Context) error {
		callCount++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, callCount)
	assert.Zero(t, retried)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoWithResult_RetryableDecidesPerAttempt(t *testing.T) {
	permanent := errors.New("400 bad request")
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		Retryable:    func(err error) bool { return !errors.Is(err, permanent) },
	}

	callCount := 0
	err := do(context.Background(), cfg, func(ctx context.Context) error {
		callCount++
		if callCount == 1 {
			return errors.New("503 service unavailable")
		}
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 2, callCount)
}

func TestApplyJitter(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, applyJitter(base, 0))

	for i := 0; i < 50; i++ {
		got := applyJitter(base, 0.1)
		assert.GreaterOrEqual(t, got, 90*time.Millisecond)
		assert.LessOrEqual(t, got, 110*time.Millisecond)
	}
}
