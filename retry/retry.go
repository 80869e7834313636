// Package retry provides a generic retry executor with geometric backoff
// for outbound network calls. Failures are classified by application error
// code: validation-class failures abort immediately, transient failures
// consume attempts until the executor is exhausted.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/metrics"
)

// Config holds retry behavior settings. Zero values fall back to the
// defaults below, which mirror the index API client's configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Defaults used for zero Config fields.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMultiplier  = 2.0
	DefaultMaxDelay    = 10 * time.Second
)

// ExhaustedError is returned when every attempt failed. It carries the
// number of attempts made and wraps the last underlying cause.
type ExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last underlying cause.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Executor retries fallible operations according to its Config.
// An Executor is safe for concurrent use.
type Executor struct {
	cfg     Config
	metrics *metrics.Registry
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics sets the registry the executor records into.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Executor) { e.metrics = reg }
}

// New creates an Executor, applying defaults for zero Config fields.
func New(cfg Config, opts ...Option) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	e := &Executor{cfg: cfg, metrics: metrics.NewRegistry()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Permanent reports whether err should not be retried. Validation-class
// codes can never succeed by repetition; context errors mean the caller
// has lost interest.
func Permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch repochat.ErrorCode(err) {
	case repochat.EINVALID, repochat.ENOTFOUND, repochat.ECONFLICT:
		return true
	}
	return false
}

// Backoff returns the delay between attempt i and attempt i+1 (0-based):
// min(BaseDelay * Multiplier^i, MaxDelay).
func (e *Executor) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(e.cfg.BaseDelay) * math.Pow(e.cfg.Multiplier, float64(attempt)))
	if d > e.cfg.MaxDelay || d <= 0 {
		return e.cfg.MaxDelay
	}
	return d
}

// Do runs op up to MaxAttempts times, waiting Backoff(i) between attempts.
// The name labels the executor's metrics. Permanent failures are surfaced
// as-is without consuming remaining attempts; exhaustion is reported as an
// *ExhaustedError wrapping the last cause.
func (e *Executor) Do(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		e.metrics.Increment("retry." + name + ".attempts")

		err := op(ctx)
		if err == nil {
			e.metrics.Increment("retry." + name + ".success")
			return nil
		}
		lastErr = err

		if Permanent(err) {
			return err
		}
		if attempt == e.cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.Backoff(attempt)):
		}
	}

	e.metrics.Increment("retry." + name + ".exhausted")
	return &ExhaustedError{Attempts: e.cfg.MaxAttempts, Err: lastErr}
}
