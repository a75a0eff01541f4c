package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	mcpimage "github.com/fastmcp-me/mcp-image"
	"github.com/fastmcp-me/mcp-image/ext"
	"github.com/fastmcp-me/mcp-image/id"
	"github.com/fastmcp-me/mcp-image/middleware"
	"github.com/fastmcp-me/mcp-image/operation"
)

// Result is the uniform outcome returned to every caller of Run,
// regardless of internal queuing. Exactly one of Data and Err is
// meaningful: Err nil means Data carries the operation's value.
type Result[T any] struct {
	Data T
	Err  error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// failure builds an error Result without naming the zero value.
func failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Manager is the public entry point of the scheduler. It wraps a
// caller-supplied operation with resource admission, priority queuing,
// execution through the middleware chain, and release.
//
// No lock is held across the execution of the wrapped operation: only
// ledger bookkeeping and wait-list maintenance are serialized.
type Manager struct {
	ledger       *Ledger
	logger       *slog.Logger
	extensions   *ext.Registry
	mw           middleware.Middleware
	queueTimeout time.Duration
	limiter      *rate.Limiter

	mu      sync.Mutex
	waiters waitList
	seq     uint64
	closed  bool
	stopCh  chan struct{}

	admitted  atomic.Uint64
	queued    atomic.Uint64
	timedOut  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithQueueTimeout sets the bounded wait for admission. Operations that
// cannot be admitted within this window fail with ErrSystemBusy.
func WithQueueTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.queueTimeout = d }
}

// WithAdmitRate caps the sustained rate of admissions using a token
// bucket. Denied operations take the ordinary queue path. A zero rate
// disables the limiter.
func WithAdmitRate(perSecond float64, burst int) ManagerOption {
	return func(m *Manager) {
		if perSecond <= 0 {
			m.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithExtensions sets the lifecycle hook registry the manager emits to.
func WithExtensions(r *ext.Registry) ManagerOption {
	return func(m *Manager) { m.extensions = r }
}

// WithMiddleware sets the middleware chain operations execute through.
func WithMiddleware(mws ...middleware.Middleware) ManagerOption {
	return func(m *Manager) { m.mw = middleware.Chain(mws...) }
}

// NewManager creates a Manager admitting against the given ledger.
func NewManager(ledger *Ledger, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		ledger:       ledger,
		logger:       logger.With(slog.String("component", "scheduler")),
		mw:           middleware.Chain(),
		queueTimeout: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ledger returns the ledger the manager admits against.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Close wakes all waiting operations with ErrManagerClosed and rejects
// new submissions. Running operations finish normally.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.stopCh)
}

// Run submits an operation to the scheduler and blocks until it has
// executed or failed. The flow is:
//
//  1. Try immediate admission against the ledger.
//  2. If denied, enqueue by priority and wait — without busy-polling —
//     for a release to make room, bounded by the queue timeout. A
//     timed-out waiter is removed exactly once and never promoted after
//     removal; a waiter promoted concurrently with its timeout proceeds
//     to run, because the ledger commit already happened.
//  3. Execute through the middleware chain. Panics and errors are
//     reported in the Result, never swallowed.
//  4. Release the admitted requirements exactly once, on every exit
//     path, then drain the queue so the next eligible waiter is
//     promoted immediately.
func Run[T any](ctx context.Context, m *Manager, op *operation.Operation, fn func(context.Context) (T, error)) Result[T] {
	if op == nil {
		return failure[T](fmt.Errorf("scheduler: nil operation"))
	}
	if err := op.Requirements.Validate(); err != nil {
		return failure[T](err)
	}
	if op.ID.IsNil() {
		op.ID = id.NewOperationID()
	}

	if err := m.admit(ctx, op); err != nil {
		return failure[T](err)
	}

	m.admitted.Add(1)
	m.emitAdmitted(ctx, op)

	// Release exactly once per admitted operation, on every exit path,
	// then promote the next eligible waiter.
	defer func() {
		m.ledger.Release(op.Requirements)
		m.drain()
	}()

	start := time.Now()
	var data T
	terminal := func(ctx context.Context) error {
		v, fnErr := fn(ctx)
		if fnErr != nil {
			return fnErr
		}
		data = v
		return nil
	}

	execErr := m.execute(ctx, op, terminal)
	if execErr != nil {
		m.failed.Add(1)
		m.emitFailed(ctx, op, execErr)
		return failure[T](execErr)
	}

	m.completed.Add(1)
	m.emitCompleted(ctx, op, time.Since(start))
	return Result[T]{Data: data}
}

// admit performs step 1 and 2 of Run: immediate admission, or a bounded
// blocking wait in the priority queue. On return with a nil error the
// operation's requirements are committed in the ledger.
func (m *Manager) admit(ctx context.Context, op *operation.Operation) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return mcpimage.ErrManagerClosed
	}

	// The admission limiter consumes a reservation; a delayed
	// reservation routes through the queue and a drain fires when the
	// token matures, so rate-limited work is promoted without polling.
	var limiterDelay time.Duration
	if m.limiter != nil {
		res := m.limiter.Reserve()
		limiterDelay = res.Delay()
	}

	if limiterDelay == 0 && m.waiters.len() == 0 && m.ledger.TryAdmit(op.Requirements) {
		m.mu.Unlock()
		return nil
	}

	w := &waiter{
		op:         op,
		enqueuedAt: time.Now(),
		seq:        m.nextSeq(),
		ready:      make(chan struct{}),
	}
	op.EnqueuedAt = w.enqueuedAt
	m.waiters.insert(w)
	depth := m.waiters.len()
	m.mu.Unlock()

	m.queued.Add(1)
	m.emitQueued(ctx, op, depth)

	if limiterDelay > 0 {
		time.AfterFunc(limiterDelay, m.drain)
	} else {
		// Capacity may have been released between the failed admission
		// attempt and the insert; drain so the waiter is not stranded.
		m.drain()
	}

	timer := time.NewTimer(m.queueTimeout)
	defer timer.Stop()

	select {
	case <-w.ready:
		return nil
	case <-timer.C:
		if m.removeWaiter(w) {
			m.timedOut.Add(1)
			m.emitTimedOut(ctx, op, time.Since(w.enqueuedAt))
			return fmt.Errorf("%w: operation %s waited %s for admission",
				mcpimage.ErrSystemBusy, op.Name, m.queueTimeout)
		}
		// Promotion won the race; resources are committed, so run.
		return nil
	case <-ctx.Done():
		if m.removeWaiter(w) {
			return fmt.Errorf("scheduler: wait for admission: %w", ctx.Err())
		}
		return nil
	case <-m.stopCh:
		if m.removeWaiter(w) {
			return mcpimage.ErrManagerClosed
		}
		return nil
	}
}

// execute runs the operation through the middleware chain, converting a
// panic into an error so execution failures are never silently swallowed.
func (m *Manager) execute(ctx context.Context, op *operation.Operation, terminal middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: panic in operation %s: %v", op.Name, r)
		}
	}()
	return m.mw(ctx, op, terminal)
}

// drain promotes waiters for as long as the ledger can admit them. Each
// successful promotion is matched to exactly one admission: promote
// commits the ledger addition before the waiter is woken, and removal
// from the list happens under the queue mutex exactly once.
func (m *Manager) drain() {
	for {
		m.mu.Lock()
		w := m.waiters.promote(m.ledger)
		if w == nil {
			m.mu.Unlock()
			return
		}
		close(w.ready)
		m.mu.Unlock()

		m.logger.Debug("promoted queued operation",
			slog.String("operation_id", w.op.ID.String()),
			slog.String("operation", w.op.Name),
			slog.Duration("waited", time.Since(w.enqueuedAt)),
		)
	}
}

// removeWaiter deletes w from the wait-list. Returns false when w was
// already promoted, in which case the caller owns committed resources.
func (m *Manager) removeWaiter(w *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters.remove(w)
}

func (m *Manager) nextSeq() uint64 {
	m.seq++
	return m.seq
}

// ──────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────

// Stats is a point-in-time snapshot of scheduler activity.
type Stats struct {
	Admitted   uint64
	Queued     uint64
	TimedOut   uint64
	Completed  uint64
	Failed     uint64
	QueueDepth int
	OldestWait time.Duration
	InUse      operation.Requirements
	Capacity   operation.Capacity
}

// Stats returns a snapshot of counters, queue state, and ledger totals.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	depth := m.waiters.len()
	oldest := m.waiters.oldestWait(time.Now())
	m.mu.Unlock()

	return Stats{
		Admitted:   m.admitted.Load(),
		Queued:     m.queued.Load(),
		TimedOut:   m.timedOut.Load(),
		Completed:  m.completed.Load(),
		Failed:     m.failed.Load(),
		QueueDepth: depth,
		OldestWait: oldest,
		InUse:      m.ledger.InUse(),
		Capacity:   m.ledger.Capacity(),
	}
}

// ──────────────────────────────────────────────────
// Hook emission
// ──────────────────────────────────────────────────

func (m *Manager) emitAdmitted(ctx context.Context, op *operation.Operation) {
	if m.extensions != nil {
		m.extensions.EmitOperationAdmitted(ctx, op)
	}
}

func (m *Manager) emitQueued(ctx context.Context, op *operation.Operation, depth int) {
	if m.extensions != nil {
		m.extensions.EmitOperationQueued(ctx, op, depth)
	}
}

func (m *Manager) emitCompleted(ctx context.Context, op *operation.Operation, elapsed time.Duration) {
	if m.extensions != nil {
		m.extensions.EmitOperationCompleted(ctx, op, elapsed)
	}
}

func (m *Manager) emitFailed(ctx context.Context, op *operation.Operation, err error) {
	if m.extensions != nil {
		m.extensions.EmitOperationFailed(ctx, op, err)
	}
}

func (m *Manager) emitTimedOut(ctx context.Context, op *operation.Operation, waited time.Duration) {
	if m.extensions != nil {
		m.extensions.EmitOperationTimedOut(ctx, op, waited)
	}
}
