// Package pool provides a bounded, concurrency-safe connection pool for
// the local store. Connections are exclusively owned between Acquire and
// Release, validated with a cheap liveness probe before reuse, and created
// on demand up to a fixed capacity.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/repochat/metrics"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors returned by Acquire. Exhaustion and wait timeout are
// distinct failure reasons: the former means capacity was the proximate
// cause, the latter that the wait simply expired. Neither is retried
// inside the pool; retry policy belongs to the caller.
var (
	ErrExhausted      = errors.New("pool: capacity exhausted")
	ErrAcquireTimeout = errors.New("pool: acquire timed out")
	ErrClosed         = errors.New("pool: closed")
)

// Conn is a poolable connection to the local store.
//
// Ping must be a cheap round-trip that confirms the connection still
// works, and implementations must allow Ping to be invoked concurrently
// with other operations on the connection (ValidateAll probes connections
// that are checked out).
type Conn interface {
	Ping(ctx context.Context) error
	Close() error
}

// Factory creates a new connection. It is called outside the pool's lock
// and is assumed to be comparatively expensive, which is what justifies
// pooling in the first place.
type Factory func(ctx context.Context) (Conn, error)

// Config holds pool capacity and timeout settings.
type Config struct {
	// MaxConns is the ceiling on simultaneously existing connections.
	MaxConns int

	// AcquireTimeout bounds how long Acquire waits for an idle
	// connection when the pool is at capacity.
	AcquireTimeout time.Duration
}

// DefaultAcquireTimeout is used when Config.AcquireTimeout is zero.
const DefaultAcquireTimeout = 30 * time.Second

type connState int

const (
	stateIdle connState = iota
	stateCheckedOut
	// stateDoomed marks a checked-out connection that failed a probe;
	// Release closes it instead of returning it to the idle queue.
	stateDoomed
)

// Pool manages the lifecycle of connections to the local store.
type Pool struct {
	factory Factory
	cfg     Config
	metrics *metrics.Registry

	mu       sync.Mutex
	conns    map[Conn]connState // the active set
	reserved int                // creations in flight, counted against capacity
	closed   bool

	idle chan Conn
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics sets the registry the pool records into.
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Pool) { p.metrics = reg }
}

// New creates a Pool. The factory is invoked lazily; no connections exist
// until the first Acquire.
func New(factory Factory, cfg Config, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, errors.New("pool: factory required")
	}
	if cfg.MaxConns <= 0 {
		return nil, errors.New("pool: max connections must be positive")
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}

	p := &Pool{
		factory: factory,
		cfg:     cfg,
		metrics: metrics.NewRegistry(),
		conns:   make(map[Conn]connState),
		idle:    make(chan Conn, cfg.MaxConns),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Acquire returns a connection with exclusive ownership transferred to the
// caller. It first tries the idle queue (validating the connection before
// reuse), then creates a new connection if the active set is below
// capacity, and otherwise waits up to the configured timeout for a
// release. The caller must return the connection via Release on every
// exit path.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	start := time.Now()
	deadline := start.Add(p.cfg.AcquireTimeout)

	for {
		// Idle connections are preferred over creation.
		select {
		case c := <-p.idle:
			if p.checkout(ctx, c) {
				p.metrics.Increment("pool.acquire_success")
				p.metrics.RecordTime("pool.acquire_wait", time.Since(start))
				return c, nil
			}
			continue
		default:
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if len(p.conns)+p.reserved < p.cfg.MaxConns {
			p.reserved++
			p.mu.Unlock()

			c, err := p.create(ctx, stateCheckedOut)
			if err != nil {
				return nil, err
			}
			p.metrics.Increment("pool.acquire_success")
			p.metrics.RecordTime("pool.acquire_wait", time.Since(start))
			return c, nil
		}
		p.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, p.timeoutErr(start)
		}

		timer := time.NewTimer(remaining)
		select {
		case c := <-p.idle:
			timer.Stop()
			if p.checkout(ctx, c) {
				p.metrics.Increment("pool.acquire_success")
				p.metrics.RecordTime("pool.acquire_wait", time.Since(start))
				return c, nil
			}
			// Invalid connection was discarded, which freed capacity.
		case <-ctx.Done():
			timer.Stop()
			p.metrics.Increment("pool.acquire_timeout")
			return nil, ErrAcquireTimeout
		case <-timer.C:
			return nil, p.timeoutErr(start)
		}
	}
}

// checkout validates an idle connection and transfers ownership to the
// caller. An invalid connection is discarded and never handed out.
func (p *Pool) checkout(ctx context.Context, c Conn) bool {
	if err := c.Ping(ctx); err != nil {
		p.discard(c)
		return false
	}

	p.mu.Lock()
	if p.closed {
		delete(p.conns, c)
		p.mu.Unlock()
		c.Close()
		return false
	}
	p.conns[c] = stateCheckedOut
	p.mu.Unlock()
	return true
}

// create invokes the factory against a previously reserved capacity slot.
// The reservation is rolled back on failure so a failed Acquire leaves the
// pool exactly as if the call had never been attempted.
func (p *Pool) create(ctx context.Context, state connState) (Conn, error) {
	c, err := p.factory(ctx)

	p.mu.Lock()
	p.reserved--
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if p.closed {
		p.mu.Unlock()
		c.Close()
		return nil, ErrClosed
	}
	p.conns[c] = state
	p.mu.Unlock()

	p.metrics.Increment("pool.conn_created")
	return c, nil
}

// timeoutErr reports the reason a bounded wait failed: exhaustion when the
// active set is at capacity, a plain wait timeout otherwise.
func (p *Pool) timeoutErr(start time.Time) error {
	p.metrics.RecordTime("pool.acquire_wait", time.Since(start))

	p.mu.Lock()
	atCapacity := len(p.conns)+p.reserved >= p.cfg.MaxConns
	p.mu.Unlock()

	if atCapacity {
		p.metrics.Increment("pool.exhausted")
		return ErrExhausted
	}
	p.metrics.Increment("pool.acquire_timeout")
	return ErrAcquireTimeout
}

// discard closes a connection and removes it from the active set.
func (p *Pool) discard(c Conn) {
	p.mu.Lock()
	delete(p.conns, c)
	p.mu.Unlock()
	c.Close()
	p.metrics.Increment("pool.conn_discarded")
}

// Release returns a checked-out connection to the idle queue. Releasing a
// connection the pool does not consider checked out (double release, or a
// handle from another pool) is a no-op. A connection doomed by ValidateAll
// while it was held out is closed instead of requeued.
func (p *Pool) Release(c Conn) {
	p.mu.Lock()
	state, ok := p.conns[c]
	if !ok {
		p.mu.Unlock()
		return
	}
	if state == stateDoomed {
		delete(p.conns, c)
		p.mu.Unlock()
		c.Close()
		p.metrics.Increment("pool.conn_discarded")
		return
	}
	if state != stateCheckedOut {
		p.mu.Unlock()
		return
	}
	if p.closed {
		delete(p.conns, c)
		p.mu.Unlock()
		c.Close()
		return
	}
	p.conns[c] = stateIdle
	p.mu.Unlock()

	select {
	case p.idle <- c:
	default:
		// Cannot happen while the capacity invariant holds, but a lost
		// connection is worse than a closed one.
		p.mu.Lock()
		delete(p.conns, c)
		p.mu.Unlock()
		c.Close()
		p.metrics.Increment("pool.release_overflow")
	}
}

// CloseAll drains the idle queue, force-closes every connection in the
// active set, and marks the pool closed. Used only at shutdown. Releases
// arriving after CloseAll are no-ops.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	p.closed = true
	conns := make([]Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.conns = make(map[Conn]connState)
	p.mu.Unlock()

	// Empty the queue so no reference to a closed connection survives.
	for {
		select {
		case <-p.idle:
		default:
			goto drained
		}
	}
drained:

	var firstErr error
	for _, c := range conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ValidateAll probes every connection in the active set and replaces the
// invalid ones. Idle connections are probed and discarded directly;
// checked-out connections are probed best-effort without blocking their
// owners and doomed so that Release closes them. One replacement per
// discard is created, up to capacity. Intended to run periodically.
func (p *Pool) ValidateAll(ctx context.Context) {
	var idleConns, outConns []Conn

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	for {
		select {
		case c := <-p.idle:
			idleConns = append(idleConns, c)
			continue
		default:
		}
		break
	}
	for c, state := range p.conns {
		if state == stateCheckedOut {
			outConns = append(outConns, c)
		}
	}
	p.mu.Unlock()

	var mu sync.Mutex
	discarded := 0

	g := &errgroup.Group{}
	g.SetLimit(4)
	for _, c := range idleConns {
		g.Go(func() error {
			if err := c.Ping(ctx); err != nil {
				p.discard(c)
				mu.Lock()
				discarded++
				mu.Unlock()
				return nil
			}
			select {
			case p.idle <- c:
			default:
				p.discard(c)
			}
			return nil
		})
	}
	for _, c := range outConns {
		g.Go(func() error {
			if err := c.Ping(ctx); err != nil {
				p.mu.Lock()
				if state, ok := p.conns[c]; ok && state == stateCheckedOut {
					p.conns[c] = stateDoomed
				}
				p.mu.Unlock()
				mu.Lock()
				discarded++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	p.metrics.Add("pool.validate_discarded", int64(discarded))

	// Recreate one connection per discard, up to capacity.
	for i := 0; i < discarded; i++ {
		p.mu.Lock()
		if p.closed || len(p.conns)+p.reserved >= p.cfg.MaxConns {
			p.mu.Unlock()
			return
		}
		p.reserved++
		p.mu.Unlock()

		c, err := p.create(ctx, stateIdle)
		if err != nil {
			return
		}
		select {
		case p.idle <- c:
		default:
			p.discard(c)
			return
		}
	}
}

// Stats reports the pool's state at an instant.
type Stats struct {
	// Active is the size of the active set, including creations in
	// flight. Always Active <= MaxConns and CheckedOut + Idle == Active.
	Active     int
	Idle       int
	CheckedOut int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Active: len(p.conns) + p.reserved, CheckedOut: p.reserved}
	for _, state := range p.conns {
		switch state {
		case stateIdle:
			s.Idle++
		case stateCheckedOut, stateDoomed:
			s.CheckedOut++
		}
	}
	return s
}
