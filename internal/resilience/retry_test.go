package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retail-pos-core/internal/fault"
)

var errTransient = fault.New(fault.KindConnectivity, "backend unreachable")

// recordingSleep captures the delay of each inter-attempt wait.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds without retry", func(t *testing.T) {
		calls := 0
		got, err := Do(ctx, Options{}, nil, func(context.Context) (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failure exhausts attempts with exponential delays", func(t *testing.T) {
		var delays []time.Duration
		calls := 0
		opts := Options{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Sleep:       recordingSleep(&delays),
		}
		_, err := Do(ctx, opts, nil, func(context.Context) (string, error) {
			calls++
			return "", errTransient
		})
		require.Error(t, err)
		// The original error comes back unchanged, never wrapped.
		assert.Same(t, error(errTransient), err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	})

	t.Run("authentication errors never retried", func(t *testing.T) {
		authErr := fault.New(fault.KindAuthentication, "backend rejected credentials")
		calls := 0
		_, err := Do(ctx, Options{MaxAttempts: 5, Sleep: recordingSleep(new([]time.Duration))}, nil,
			func(context.Context) (int, error) {
				calls++
				return 0, authErr
			})
		assert.Same(t, error(authErr), err)
		assert.Equal(t, 1, calls)
	})

	t.Run("configuration errors never retried", func(t *testing.T) {
		cfgErr := fault.New(fault.KindConfiguration, "db host is required")
		calls := 0
		_, err := Do(ctx, Options{MaxAttempts: 5, Sleep: recordingSleep(new([]time.Duration))}, nil,
			func(context.Context) (int, error) {
				calls++
				return 0, cfgErr
			})
		assert.Same(t, error(cfgErr), err)
		assert.Equal(t, 1, calls)
	})

	t.Run("unrecognized errors retried by default", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, Options{MaxAttempts: 2, Sleep: recordingSleep(new([]time.Duration))}, nil,
			func(context.Context) (int, error) {
				calls++
				return 0, errors.New("something unexpected")
			})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("success after failures", func(t *testing.T) {
		calls := 0
		got, err := Do(ctx, Options{MaxAttempts: 3, Sleep: recordingSleep(new([]time.Duration))}, nil,
			func(context.Context) (string, error) {
				calls++
				if calls < 3 {
					return "", errTransient
				}
				return "ok", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("interrupted sleep returns the last operation error", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		_, err := Do(cancelled, Options{MaxAttempts: 3}, nil, func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
		assert.Same(t, error(errTransient), err)
		assert.Equal(t, 1, calls)
	})
}

func TestDelay(t *testing.T) {
	t.Run("without jitter the formula is exact", func(t *testing.T) {
		opts := Options{BaseDelay: time.Second, MaxDelay: 10 * time.Second, ExponentialBase: 2}
		assert.Equal(t, time.Second, opts.Delay(0))
		assert.Equal(t, 2*time.Second, opts.Delay(1))
		assert.Equal(t, 4*time.Second, opts.Delay(2))
		assert.Equal(t, 8*time.Second, opts.Delay(3))
		// Capped at MaxDelay from here on.
		assert.Equal(t, 10*time.Second, opts.Delay(4))
		assert.Equal(t, 10*time.Second, opts.Delay(10))
	})

	t.Run("jitter stays within twenty percent", func(t *testing.T) {
		opts := Options{BaseDelay: time.Second, MaxDelay: 10 * time.Second, ExponentialBase: 2, Jitter: true}
		for attempt := 0; attempt < 4; attempt++ {
			expected := time.Duration(float64(time.Second) * float64(int(1)<<attempt))
			for i := 0; i < 200; i++ {
				d := opts.Delay(attempt)
				assert.GreaterOrEqual(t, d, time.Duration(float64(expected)*0.8))
				assert.LessOrEqual(t, d, time.Duration(float64(expected)*1.2))
			}
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, time.Second, opts.BaseDelay)
	assert.Equal(t, 10*time.Second, opts.MaxDelay)
	assert.Equal(t, float64(2), opts.ExponentialBase)
	assert.True(t, opts.Jitter)
}
