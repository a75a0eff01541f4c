// Package ext defines the extension system for the orchestration core.
// Extensions are notified of lifecycle events (operation admitted, queued,
// completed, failed, recovery applied, etc.) and can react to them —
// logging, metrics, alerting.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about. Hook failures are logged and swallowed:
// an extension can never change the outcome returned to a caller.
package ext

import (
	"context"
	"time"

	"github.com/fastmcp-me/mcp-image/operation"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Operation lifecycle hooks
// ──────────────────────────────────────────────────

// OperationAdmitted is called when the ledger commits resources for an
// operation, immediately before execution.
type OperationAdmitted interface {
	OnOperationAdmitted(ctx context.Context, op *operation.Operation) error
}

// OperationQueued is called when admission is denied and the operation
// enters the wait-list. depth is the queue depth after insertion.
type OperationQueued interface {
	OnOperationQueued(ctx context.Context, op *operation.Operation, depth int) error
}

// OperationCompleted is called after an operation finishes successfully.
type OperationCompleted interface {
	OnOperationCompleted(ctx context.Context, op *operation.Operation, elapsed time.Duration) error
}

// OperationFailed is called when an operation's execution returns an error.
type OperationFailed interface {
	OnOperationFailed(ctx context.Context, op *operation.Operation, err error) error
}

// OperationTimedOut is called when a queued operation gives up waiting
// for admission.
type OperationTimedOut interface {
	OnOperationTimedOut(ctx context.Context, op *operation.Operation, waited time.Duration) error
}

// ──────────────────────────────────────────────────
// Recovery hooks
// ──────────────────────────────────────────────────

// RecoveryApplied is called after the error handler resolves a failure.
// The arguments are primitives so extensions stay decoupled from the
// recovery package's types.
type RecoveryApplied interface {
	OnRecoveryApplied(ctx context.Context, operationName, code, action string, success bool) error
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called when the engine shuts down.
type Shutdown interface {
	OnShutdown(ctx context.Context)
}
