package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/metrics"
	"github.com/fwojciec/repochat/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps test backoff delays negligible.
func fastConfig(maxAttempts int) retry.Config {
	return retry.Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestExecutor_Do(t *testing.T) {
	t.Parallel()

	t.Run("returns on first success", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		e := retry.New(fastConfig(3), retry.WithMetrics(reg))

		calls := 0
		err := e.Do(context.Background(), "search", func(ctx context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, int64(1), reg.Counter("retry.search.attempts"))
		assert.Equal(t, int64(1), reg.Counter("retry.search.success"))
	})

	t.Run("retries transient failures until success", func(t *testing.T) {
		t.Parallel()

		e := retry.New(fastConfig(3))

		calls := 0
		err := e.Do(context.Background(), "search", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return repochat.Errorf(repochat.EUNAVAILABLE, "backend unavailable")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("makes at most MaxAttempts attempts and reports exhaustion", func(t *testing.T) {
		t.Parallel()

		reg := metrics.NewRegistry()
		e := retry.New(fastConfig(3), retry.WithMetrics(reg))

		cause := repochat.Errorf(repochat.EUNAVAILABLE, "backend unavailable")
		calls := 0
		err := e.Do(context.Background(), "sync", func(ctx context.Context) error {
			calls++
			return cause
		})

		assert.Equal(t, 3, calls)

		var exhausted *retry.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, int64(3), reg.Counter("retry.sync.attempts"))
		assert.Equal(t, int64(1), reg.Counter("retry.sync.exhausted"))
	})

	t.Run("validation failures abort immediately", func(t *testing.T) {
		t.Parallel()

		e := retry.New(fastConfig(5))

		cause := repochat.Errorf(repochat.EINVALID, "bad query")
		calls := 0
		err := e.Do(context.Background(), "search", func(ctx context.Context) error {
			calls++
			return cause
		})

		assert.Equal(t, 1, calls, "permanent failures must not consume attempts")
		assert.Same(t, cause, err, "permanent failures are surfaced as-is")
	})

	t.Run("context cancellation stops retrying", func(t *testing.T) {
		t.Parallel()

		e := retry.New(retry.Config{MaxAttempts: 10, BaseDelay: time.Minute, Multiplier: 2, MaxDelay: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := e.Do(ctx, "search", func(ctx context.Context) error {
			return errors.New("flaky")
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the backoff wait")
	})
}

func TestExecutor_Backoff(t *testing.T) {
	t.Parallel()

	t.Run("grows geometrically up to the ceiling", func(t *testing.T) {
		t.Parallel()

		e := retry.New(retry.Config{
			MaxAttempts: 10,
			BaseDelay:   500 * time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    10 * time.Second,
		})

		want := []time.Duration{
			500 * time.Millisecond,
			time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			10 * time.Second, // capped
			10 * time.Second,
		}
		for i, w := range want {
			assert.Equal(t, w, e.Backoff(i), "attempt %d", i)
		}
	})

	t.Run("cumulative backoff matches the schedule", func(t *testing.T) {
		t.Parallel()

		e := retry.New(retry.Config{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    10 * time.Second,
		})

		// Two inter-attempt delays for three attempts: 0.5s then 1.0s.
		var total time.Duration
		for i := 0; i < 2; i++ {
			total += e.Backoff(i)
		}
		assert.Equal(t, 1500*time.Millisecond, total)
	})
}

func TestPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, retry.Permanent(repochat.Errorf(repochat.EINVALID, "x")))
	assert.True(t, retry.Permanent(repochat.Errorf(repochat.ENOTFOUND, "x")))
	assert.True(t, retry.Permanent(repochat.Errorf(repochat.ECONFLICT, "x")))
	assert.True(t, retry.Permanent(context.Canceled))
	assert.False(t, retry.Permanent(repochat.Errorf(repochat.EUNAVAILABLE, "x")))
	assert.False(t, retry.Permanent(errors.New("connection reset")))
}
