package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastmcp-me/mcp-image/operation"
)

// LoggingExtension is the built-in logging collaborator: it records every
// lifecycle event through a structured logger. Because the registry
// swallows hook errors, a broken log sink can never affect the outcome
// returned to a caller.
type LoggingExtension struct {
	logger *slog.Logger
}

// NewLogging creates a logging extension writing to the given logger.
func NewLogging(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{logger: logger.With(slog.String("component", "lifecycle"))}
}

// Name implements Extension.
func (l *LoggingExtension) Name() string { return "logging" }

// OnOperationAdmitted implements OperationAdmitted.
func (l *LoggingExtension) OnOperationAdmitted(_ context.Context, op *operation.Operation) error {
	l.logger.Info("operation admitted",
		slog.String("operation_id", op.ID.String()),
		slog.String("operation", op.Name),
		slog.String("priority", op.Priority.String()),
	)
	return nil
}

// OnOperationQueued implements OperationQueued.
func (l *LoggingExtension) OnOperationQueued(_ context.Context, op *operation.Operation, depth int) error {
	l.logger.Info("operation queued for admission",
		slog.String("operation_id", op.ID.String()),
		slog.String("operation", op.Name),
		slog.String("priority", op.Priority.String()),
		slog.Int("queue_depth", depth),
	)
	return nil
}

// OnOperationCompleted implements OperationCompleted.
func (l *LoggingExtension) OnOperationCompleted(_ context.Context, op *operation.Operation, elapsed time.Duration) error {
	l.logger.Info("operation completed",
		slog.String("operation_id", op.ID.String()),
		slog.String("operation", op.Name),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// OnOperationFailed implements OperationFailed.
func (l *LoggingExtension) OnOperationFailed(_ context.Context, op *operation.Operation, opErr error) error {
	l.logger.Error("operation failed",
		slog.String("operation_id", op.ID.String()),
		slog.String("operation", op.Name),
		slog.String("error", opErr.Error()),
	)
	return nil
}

// OnOperationTimedOut implements OperationTimedOut.
func (l *LoggingExtension) OnOperationTimedOut(_ context.Context, op *operation.Operation, waited time.Duration) error {
	l.logger.Warn("operation timed out waiting for admission",
		slog.String("operation_id", op.ID.String()),
		slog.String("operation", op.Name),
		slog.Duration("waited", waited),
	)
	return nil
}

// OnRecoveryApplied implements RecoveryApplied.
func (l *LoggingExtension) OnRecoveryApplied(_ context.Context, operationName, code, action string, success bool) error {
	l.logger.Info("recovery applied",
		slog.String("operation", operationName),
		slog.String("code", code),
		slog.String("action", action),
		slog.Bool("success", success),
	)
	return nil
}
