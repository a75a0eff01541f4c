package scheduler

import (
	"log/slog"
	"sync"

	"github.com/fastmcp-me/mcp-image/operation"
)

// Ledger tracks aggregate resource consumption against a fixed capacity.
// It is the single owner of the consumption counters: admission and
// release are the only mutations, and both happen under one mutex so that
// check-and-commit is indivisible. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	capacity operation.Capacity
	inUse    operation.Requirements
	logger   *slog.Logger
}

// NewLedger creates a Ledger enforcing the given capacity.
func NewLedger(cap operation.Capacity, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		capacity: cap,
		logger:   logger.With(slog.String("component", "ledger")),
	}
}

// Capacity returns the fixed ceiling the ledger enforces.
func (l *Ledger) Capacity() operation.Capacity { return l.capacity }

// TryAdmit atomically checks whether adding req to the current totals
// keeps every dimension within capacity. If so it commits the addition
// and returns true; otherwise it leaves state unchanged and returns
// false. The decision is all-or-nothing across all four dimensions.
func (l *Ledger) TryAdmit(req operation.Requirements) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.capacity.Fits(l.inUse.Add(req)) {
		return false
	}

	l.inUse = l.inUse.Add(req)
	return true
}

// Release atomically subtracts req from the current totals. A release
// that would drive any dimension negative indicates a bookkeeping defect:
// the dimension is clamped at zero and the defect is reported through the
// logger, never surfaced to the caller.
func (l *Ledger) Release(req operation.Requirements) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inUse.MemoryBytes = l.clampInt64(l.inUse.MemoryBytes-req.MemoryBytes, "memory_bytes")
	l.inUse.CPUPercent = l.clampFloat(l.inUse.CPUPercent-req.CPUPercent, "cpu_percent")
	l.inUse.NetworkBytesPerSec = l.clampInt64(l.inUse.NetworkBytesPerSec-req.NetworkBytesPerSec, "network_bytes_per_sec")
	l.inUse.Connections = int(l.clampInt64(int64(l.inUse.Connections-req.Connections), "connections"))
}

// InUse returns a snapshot of the current aggregate consumption.
func (l *Ledger) InUse() operation.Requirements {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Available returns how much headroom remains in each dimension.
func (l *Ledger) Available() operation.Requirements {
	l.mu.Lock()
	defer l.mu.Unlock()
	return operation.Requirements{
		MemoryBytes:        l.capacity.MemoryBytes - l.inUse.MemoryBytes,
		CPUPercent:         l.capacity.CPUPercent - l.inUse.CPUPercent,
		NetworkBytesPerSec: l.capacity.NetworkBytesPerSec - l.inUse.NetworkBytesPerSec,
		Connections:        l.capacity.MaxConnections - l.inUse.Connections,
	}
}

func (l *Ledger) clampInt64(v int64, dimension string) int64 {
	if v < 0 {
		l.logger.Error("release drove resource counter below zero",
			slog.String("dimension", dimension),
			slog.Int64("value", v),
		)
		return 0
	}
	return v
}

func (l *Ledger) clampFloat(v float64, dimension string) float64 {
	if v < 0 {
		// Tiny negative drift from float arithmetic is not a defect.
		if v > -1e-9 {
			return 0
		}
		l.logger.Error("release drove resource counter below zero",
			slog.String("dimension", dimension),
			slog.Float64("value", v),
		)
		return 0
	}
	return v
}
