package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mcpimage "github.com/fastmcp-me/mcp-image"
	"github.com/fastmcp-me/mcp-image/middleware"
	"github.com/fastmcp-me/mcp-image/operation"
)

func testManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	m := NewManager(NewLedger(testCapacity(), testLogger()), testLogger(), opts...)
	t.Cleanup(m.Close)
	return m
}

func smallOp(name string) *operation.Operation {
	return operation.New(name, operation.Requirements{
		MemoryBytes: 10, CPUPercent: 1, NetworkBytesPerSec: 10, Connections: 1,
	}, operation.PriorityNormal)
}

// ---------------------------------------------------------------------------
// Basic execution
// ---------------------------------------------------------------------------

func TestRun_Success(t *testing.T) {
	m := testManager(t)

	res := Run(context.Background(), m, smallOp("ok"), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if !res.OK() {
		t.Fatalf("Run: %v", res.Err)
	}
	if res.Data != 42 {
		t.Fatalf("data mismatch: got %d", res.Data)
	}
}

func TestRun_OperationError(t *testing.T) {
	m := testManager(t)
	boom := errors.New("boom")

	res := Run(context.Background(), m, smallOp("fails"), func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected the operation's error, got %v", res.Err)
	}
}

func TestRun_PanicBecomesError(t *testing.T) {
	m := testManager(t)

	res := Run(context.Background(), m, smallOp("panics"), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	if res.Err == nil || !strings.Contains(res.Err.Error(), "kaboom") {
		t.Fatalf("panic must surface as an error, got %v", res.Err)
	}
	if got := m.Ledger().InUse(); got != (operation.Requirements{}) {
		t.Fatalf("resources must be released after a panic, in-use %+v", got)
	}
}

func TestRun_InvalidRequirementsRejected(t *testing.T) {
	m := testManager(t)

	op := operation.New("bad", operation.Requirements{MemoryBytes: -1}, operation.PriorityNormal)
	res := Run(context.Background(), m, op, func(ctx context.Context) (int, error) {
		t.Fatal("operation with invalid requirements must not run")
		return 0, nil
	})
	if !errors.Is(res.Err, mcpimage.ErrInvalidRequirements) {
		t.Fatalf("expected ErrInvalidRequirements, got %v", res.Err)
	}
}

func TestRun_AssignsMissingOperationID(t *testing.T) {
	m := testManager(t)
	op := &operation.Operation{Name: "gets-id", Priority: operation.PriorityNormal}

	Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	if op.ID.IsNil() {
		t.Fatal("Run must assign an ID to a hand-built operation")
	}
}

func TestRun_ReleasesExactlyWhatWasAdmitted(t *testing.T) {
	m := testManager(t)
	req := operation.Requirements{MemoryBytes: 321, CPUPercent: 7.5, NetworkBytesPerSec: 99, Connections: 3}
	op := operation.New("exact", req, operation.PriorityNormal)

	var during operation.Requirements
	Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
		during = m.Ledger().InUse()
		return struct{}{}, nil
	})

	if during != req {
		t.Fatalf("in-use during execution should equal requirements, got %+v", during)
	}
	if after := m.Ledger().InUse(); after != (operation.Requirements{}) {
		t.Fatalf("in-use after release should be zero, got %+v", after)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

// Five concurrent operations each bump a shared counter; the scheduler must
// not lose any update and must never let in-use exceed capacity.
func TestRun_ConcurrentOperationsNoLostUpdates(t *testing.T) {
	m := testManager(t)

	var mu sync.Mutex
	counter := 0

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Run(context.Background(), m, smallOp("count"), func(ctx context.Context) (struct{}, error) {
				mu.Lock()
				counter++
				mu.Unlock()
				return struct{}{}, nil
			})
			if !res.OK() {
				t.Errorf("Run: %v", res.Err)
			}
		}()
	}
	wg.Wait()

	if counter != 5 {
		t.Fatalf("lost updates: counter=%d", counter)
	}
	if got := m.Ledger().InUse(); got != (operation.Requirements{}) {
		t.Fatalf("resources leaked: %+v", got)
	}
}

func TestRun_CapacityNeverExceededUnderLoad(t *testing.T) {
	cap := operation.Capacity{MemoryBytes: 100, CPUPercent: 100, NetworkBytesPerSec: 100, MaxConnections: 100}
	ledger := NewLedger(cap, testLogger())
	m := NewManager(ledger, testLogger(), WithQueueTimeout(5*time.Second))
	t.Cleanup(m.Close)

	// Each operation takes half the capacity, so at most two run at once.
	req := operation.Requirements{MemoryBytes: 50, CPUPercent: 50, NetworkBytesPerSec: 50, Connections: 50}

	var mu sync.Mutex
	running, peak := 0, 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			op := operation.New("load", req, operation.PriorityNormal)
			res := Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return struct{}{}, nil
			})
			if !res.OK() {
				t.Errorf("Run: %v", res.Err)
			}
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Fatalf("capacity allows 2 concurrent operations, observed %d", peak)
	}
}

// ---------------------------------------------------------------------------
// Queuing, priority, and timeout
// ---------------------------------------------------------------------------

func TestRun_QueuedOperationPromotedOnRelease(t *testing.T) {
	m := testManager(t, WithQueueTimeout(5*time.Second))

	// Saturate the ledger, then submit a second operation that must wait.
	full := operation.Requirements{MemoryBytes: 1000, CPUPercent: 100, NetworkBytesPerSec: 1000, Connections: 10}
	holdRelease := make(chan struct{})
	firstRunning := make(chan struct{})

	go func() {
		op := operation.New("holder", full, operation.PriorityNormal)
		Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
			close(firstRunning)
			<-holdRelease
			return struct{}{}, nil
		})
	}()
	<-firstRunning

	done := make(chan Result[string])
	go func() {
		done <- Run(context.Background(), m, smallOp("waiter"), func(ctx context.Context) (string, error) {
			return "ran", nil
		})
	}()

	// The waiter cannot have run yet; release the holder and it must proceed.
	select {
	case <-done:
		t.Fatal("waiter ran before resources were released")
	case <-time.After(50 * time.Millisecond):
	}

	close(holdRelease)

	select {
	case res := <-done:
		if !res.OK() || res.Data != "ran" {
			t.Fatalf("waiter result: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not promoted after release")
	}
}

func TestRun_HighPriorityAdmittedBeforeLow(t *testing.T) {
	m := testManager(t, WithQueueTimeout(5*time.Second))

	full := operation.Requirements{MemoryBytes: 1000, CPUPercent: 100, NetworkBytesPerSec: 1000, Connections: 10}
	holdRelease := make(chan struct{})
	firstRunning := make(chan struct{})

	go func() {
		op := operation.New("holder", full, operation.PriorityNormal)
		Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
			close(firstRunning)
			<-holdRelease
			return struct{}{}, nil
		})
	}()
	<-firstRunning

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	submit := func(name string, prio operation.Priority) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			op := operation.New(name, full, prio)
			Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return struct{}{}, nil
			})
		}()
	}

	submit("low", operation.PriorityLow)
	// Let the low-priority waiter enqueue first.
	time.Sleep(50 * time.Millisecond)
	submit("high", operation.PriorityHigh)
	time.Sleep(50 * time.Millisecond)

	close(holdRelease)
	wg.Wait()

	if len(order) != 2 || order[0] != "high" {
		t.Fatalf("high priority must run first, got order %v", order)
	}
}

// Two operations each demanding 90% of capacity: the first runs, the second
// cannot coexist and fails with ErrSystemBusy once its wait expires.
func TestRun_SecondOversizedOperationTimesOut(t *testing.T) {
	m := testManager(t, WithQueueTimeout(100*time.Millisecond))

	big := operation.Requirements{MemoryBytes: 900, CPUPercent: 90, NetworkBytesPerSec: 900, Connections: 9}
	holdRelease := make(chan struct{})
	firstRunning := make(chan struct{})

	go func() {
		op := operation.New("first", big, operation.PriorityNormal)
		Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
			close(firstRunning)
			<-holdRelease
			return struct{}{}, nil
		})
	}()
	<-firstRunning
	defer close(holdRelease)

	op := operation.New("second", big, operation.PriorityNormal)
	res := Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
		t.Error("second operation must not run while the first holds 90%")
		return struct{}{}, nil
	})
	if !errors.Is(res.Err, mcpimage.ErrSystemBusy) {
		t.Fatalf("expected ErrSystemBusy, got %v", res.Err)
	}

	stats := m.Stats()
	if stats.TimedOut != 1 {
		t.Fatalf("expected 1 timeout in stats, got %d", stats.TimedOut)
	}
}

func TestRun_ContextCancelledWhileQueued(t *testing.T) {
	m := testManager(t, WithQueueTimeout(5*time.Second))

	full := operation.Requirements{MemoryBytes: 1000, CPUPercent: 100, NetworkBytesPerSec: 1000, Connections: 10}
	holdRelease := make(chan struct{})
	firstRunning := make(chan struct{})
	defer close(holdRelease)

	go func() {
		op := operation.New("holder", full, operation.PriorityNormal)
		Run(context.Background(), m, op, func(ctx context.Context) (struct{}, error) {
			close(firstRunning)
			<-holdRelease
			return struct{}{}, nil
		})
	}()
	<-firstRunning

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res := Run(ctx, m, smallOp("cancelled"), func(ctx context.Context) (struct{}, error) {
		t.Error("cancelled operation must not run")
		return struct{}{}, nil
	})
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
}

func TestRun_ClosedManagerRejectsSubmissions(t *testing.T) {
	m := NewManager(NewLedger(testCapacity(), testLogger()), testLogger())
	m.Close()

	res := Run(context.Background(), m, smallOp("rejected"), func(ctx context.Context) (struct{}, error) {
		t.Error("operation must not run after Close")
		return struct{}{}, nil
	})
	if !errors.Is(res.Err, mcpimage.ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed, got %v", res.Err)
	}
}

// ---------------------------------------------------------------------------
// Middleware and stats
// ---------------------------------------------------------------------------

func TestRun_MiddlewareWrapsExecution(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(ctx context.Context, op *operation.Operation, next middleware.Handler) error {
			order = append(order, name+"-before")
			err := next(ctx)
			order = append(order, name+"-after")
			return err
		}
	}

	m := testManager(t, WithMiddleware(tag("outer"), tag("inner")))

	Run(context.Background(), m, smallOp("mw"), func(ctx context.Context) (struct{}, error) {
		order = append(order, "fn")
		return struct{}{}, nil
	})

	want := []string{"outer-before", "inner-before", "fn", "inner-after", "outer-after"}
	if len(order) != len(want) {
		t.Fatalf("order mismatch: got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, order, want)
		}
	}
}

func TestStats_CountsOutcomes(t *testing.T) {
	m := testManager(t)

	Run(context.Background(), m, smallOp("ok"), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	Run(context.Background(), m, smallOp("bad"), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, errors.New("nope")
	})

	stats := m.Stats()
	if stats.Admitted != 2 || stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
	if stats.QueueDepth != 0 {
		t.Fatalf("queue should be empty, depth=%d", stats.QueueDepth)
	}
}
