// Package batch coalesces many near-simultaneous logical requests into one
// physical call. Callers block in Submit until their batch flushes; a batch
// flushes as soon as it is full, or after a bounded window elapses,
// whichever comes first. Batches are all-or-nothing: one physical failure
// rejects every waiter in the batch with the same error.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/metrics"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("batch: closed")

// Error wraps the failure of the single physical call backing a batch.
// Every waiter in the batch receives the same *Error.
type Error struct {
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string { return "batch: " + e.Err.Error() }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Func executes one physical call covering a whole batch. Results must be
// returned in request order, one per request.
type Func[Req, Res any] func(ctx context.Context, reqs []Req) ([]Res, error)

// Config holds batching thresholds.
type Config struct {
	// Size is the batch capacity; reaching it flushes immediately.
	Size int

	// Window is the maximum time a request waits before its batch is
	// forced to flush.
	Window time.Duration
}

// Defaults used for zero Config fields.
const (
	DefaultSize   = 5
	DefaultWindow = 100 * time.Millisecond
)

type outcome[Res any] struct {
	res Res
	err error
}

// waiter pairs a request with its single-resolution completion handle.
type waiter[Req, Res any] struct {
	req  Req
	done chan outcome[Res] // buffered; written to exactly once
}

// Batcher coalesces requests of type Req into calls of fn, distributing
// the ordered results of type Res back to each waiter.
type Batcher[Req, Res any] struct {
	fn      Func[Req, Res]
	cfg     Config
	metrics *metrics.Registry

	mu         sync.Mutex
	pending    []*waiter[Req, Res]
	timer      *time.Timer // scheduled window flush, nil if none
	inflight   bool
	flightDone chan struct{}
	closed     bool
}

// Option configures a Batcher.
type Option func(o *options)

type options struct {
	metrics *metrics.Registry
}

// WithMetrics sets the registry the batcher records into.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// New creates a Batcher around fn, applying defaults for zero Config
// fields.
func New[Req, Res any](cfg Config, fn Func[Req, Res], opts ...Option) *Batcher[Req, Res] {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	o := &options{metrics: metrics.NewRegistry()}
	for _, opt := range opts {
		opt(o)
	}

	return &Batcher[Req, Res]{fn: fn, cfg: cfg, metrics: o.metrics}
}

// Submit enqueues req and blocks until its batch flushes, returning the
// caller's element of the batch result. Cancelling ctx before the flush
// removes only this waiter; once the batch has been taken for flushing,
// the physical call proceeds and the abandoned result is discarded.
func (b *Batcher[Req, Res]) Submit(ctx context.Context, req Req) (Res, error) {
	var zero Res

	w := &waiter[Req, Res]{req: req, done: make(chan outcome[Res], 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return zero, ErrClosed
	}
	b.pending = append(b.pending, w)
	b.metrics.Increment("batch.submitted")

	if len(b.pending) >= b.cfg.Size && !b.inflight {
		// Size reached: any scheduled window flush is cancelled and the
		// batch goes out now.
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		taken := b.take()
		b.startFlight()
		b.mu.Unlock()
		go b.flush(taken, "full")
	} else {
		if b.timer == nil && !b.inflight {
			b.timer = time.AfterFunc(b.cfg.Window, b.windowFlush)
		}
		b.mu.Unlock()
	}

	select {
	case out := <-w.done:
		return out.res, out.err
	case <-ctx.Done():
		b.remove(w)
		return zero, ctx.Err()
	}
}

// Close flushes any pending requests and rejects further submits.
func (b *Batcher[Req, Res]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	for b.inflight {
		done := b.flightDone
		b.mu.Unlock()
		<-done
		b.mu.Lock()
	}
	var taken [][]*waiter[Req, Res]
	for len(b.pending) > 0 {
		taken = append(taken, b.take())
	}
	b.mu.Unlock()

	for _, batch := range taken {
		b.run(batch, "close")
	}
}

// take removes up to Size pending waiters in submission order.
// Callers must hold b.mu.
func (b *Batcher[Req, Res]) take() []*waiter[Req, Res] {
	n := len(b.pending)
	if n > b.cfg.Size {
		n = b.cfg.Size
	}
	taken := make([]*waiter[Req, Res], n)
	copy(taken, b.pending[:n])
	b.pending = append(b.pending[:0:0], b.pending[n:]...)
	return taken
}

// startFlight marks a flush in flight. Callers must hold b.mu.
func (b *Batcher[Req, Res]) startFlight() {
	b.inflight = true
	b.flightDone = make(chan struct{})
}

// remove drops a waiter that has not been flushed yet. Other waiters in
// the same eventual batch are unaffected.
func (b *Batcher[Req, Res]) remove(w *waiter[Req, Res]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.pending {
		if x == w {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			break
		}
	}
	if len(b.pending) == 0 && b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// windowFlush fires when the batch window elapses.
func (b *Batcher[Req, Res]) windowFlush() {
	b.mu.Lock()
	b.timer = nil
	if b.closed || b.inflight || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	taken := b.take()
	b.startFlight()
	b.mu.Unlock()

	b.flush(taken, "window")
}

// flush runs one batch and then dispatches whatever accumulated while the
// flight was out. At most one flight exists at any time.
func (b *Batcher[Req, Res]) flush(batch []*waiter[Req, Res], trigger string) {
	b.run(batch, trigger)

	b.mu.Lock()
	b.inflight = false
	close(b.flightDone)
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.pending) >= b.cfg.Size {
		taken := b.take()
		b.startFlight()
		b.mu.Unlock()
		go b.flush(taken, "full")
		return
	}
	if len(b.pending) > 0 && b.timer == nil {
		b.timer = time.AfterFunc(b.cfg.Window, b.windowFlush)
	}
	b.mu.Unlock()
}

// run executes the physical call for one batch and resolves every waiter,
// with results matched to requests by position.
func (b *Batcher[Req, Res]) run(batch []*waiter[Req, Res], trigger string) {
	reqs := make([]Req, len(batch))
	for i, w := range batch {
		reqs[i] = w.req
	}

	b.metrics.Increment("batch.flushes")
	b.metrics.Increment("batch.flush_" + trigger)

	start := time.Now()
	res, err := b.fn(context.Background(), reqs)
	b.metrics.RecordTime("batch.flush_duration", time.Since(start))

	if err == nil && len(res) != len(reqs) {
		err = repochat.Errorf(repochat.EINTERNAL,
			"batch returned %d results for %d requests", len(res), len(reqs))
	}
	if err != nil {
		b.metrics.Increment("batch.failed")
		be := &Error{Err: err}
		for _, w := range batch {
			w.done <- outcome[Res]{err: be}
		}
		return
	}
	for i, w := range batch {
		w.done <- outcome[Res]{res: res[i]}
	}
}
