package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastmcp-me/mcp-image/operation"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type operationAdmittedEntry struct {
	name string
	hook OperationAdmitted
}

type operationQueuedEntry struct {
	name string
	hook OperationQueued
}

type operationCompletedEntry struct {
	name string
	hook OperationCompleted
}

type operationFailedEntry struct {
	name string
	hook OperationFailed
}

type operationTimedOutEntry struct {
	name string
	hook OperationTimedOut
}

type recoveryAppliedEntry struct {
	name string
	hook RecoveryApplied
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	operationAdmitted  []operationAdmittedEntry
	operationQueued    []operationQueuedEntry
	operationCompleted []operationCompletedEntry
	operationFailed    []operationFailedEntry
	operationTimedOut  []operationTimedOutEntry
	recoveryApplied    []recoveryAppliedEntry
	shutdown           []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(OperationAdmitted); ok {
		r.operationAdmitted = append(r.operationAdmitted, operationAdmittedEntry{name, h})
	}
	if h, ok := e.(OperationQueued); ok {
		r.operationQueued = append(r.operationQueued, operationQueuedEntry{name, h})
	}
	if h, ok := e.(OperationCompleted); ok {
		r.operationCompleted = append(r.operationCompleted, operationCompletedEntry{name, h})
	}
	if h, ok := e.(OperationFailed); ok {
		r.operationFailed = append(r.operationFailed, operationFailedEntry{name, h})
	}
	if h, ok := e.(OperationTimedOut); ok {
		r.operationTimedOut = append(r.operationTimedOut, operationTimedOutEntry{name, h})
	}
	if h, ok := e.(RecoveryApplied); ok {
		r.recoveryApplied = append(r.recoveryApplied, recoveryAppliedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []Extension {
	return r.extensions
}

// EmitOperationAdmitted notifies all extensions that implement OperationAdmitted.
func (r *Registry) EmitOperationAdmitted(ctx context.Context, op *operation.Operation) {
	for _, e := range r.operationAdmitted {
		if err := e.hook.OnOperationAdmitted(ctx, op); err != nil {
			r.logHookError("OnOperationAdmitted", e.name, err)
		}
	}
}

// EmitOperationQueued notifies all extensions that implement OperationQueued.
func (r *Registry) EmitOperationQueued(ctx context.Context, op *operation.Operation, depth int) {
	for _, e := range r.operationQueued {
		if err := e.hook.OnOperationQueued(ctx, op, depth); err != nil {
			r.logHookError("OnOperationQueued", e.name, err)
		}
	}
}

// EmitOperationCompleted notifies all extensions that implement OperationCompleted.
func (r *Registry) EmitOperationCompleted(ctx context.Context, op *operation.Operation, elapsed time.Duration) {
	for _, e := range r.operationCompleted {
		if err := e.hook.OnOperationCompleted(ctx, op, elapsed); err != nil {
			r.logHookError("OnOperationCompleted", e.name, err)
		}
	}
}

// EmitOperationFailed notifies all extensions that implement OperationFailed.
func (r *Registry) EmitOperationFailed(ctx context.Context, op *operation.Operation, opErr error) {
	for _, e := range r.operationFailed {
		if err := e.hook.OnOperationFailed(ctx, op, opErr); err != nil {
			r.logHookError("OnOperationFailed", e.name, err)
		}
	}
}

// EmitOperationTimedOut notifies all extensions that implement OperationTimedOut.
func (r *Registry) EmitOperationTimedOut(ctx context.Context, op *operation.Operation, waited time.Duration) {
	for _, e := range r.operationTimedOut {
		if err := e.hook.OnOperationTimedOut(ctx, op, waited); err != nil {
			r.logHookError("OnOperationTimedOut", e.name, err)
		}
	}
}

// EmitRecoveryApplied notifies all extensions that implement RecoveryApplied.
func (r *Registry) EmitRecoveryApplied(ctx context.Context, operationName, code, action string, success bool) {
	for _, e := range r.recoveryApplied {
		if err := e.hook.OnRecoveryApplied(ctx, operationName, code, action, success); err != nil {
			r.logHookError("OnRecoveryApplied", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		e.hook.OnShutdown(ctx)
	}
}

// logHookError reports a hook failure without letting it propagate:
// extensions must never affect the outcome returned to a caller.
func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Warn("extension hook failed",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}
