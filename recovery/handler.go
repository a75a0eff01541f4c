package recovery

import (
	"context"
	"log/slog"

	"github.com/fastmcp-me/mcp-image/ext"
)

// Handler composes the Classifier and Policy into a single entry point
// producing a structured, user-presentable Outcome. It also records
// unrecovered failures in the journal and notifies lifecycle extensions.
// Logging and hook failures never affect the outcome returned.
type Handler struct {
	classifier *Classifier
	policy     *Policy
	journal    *Journal
	extensions *ext.Registry
	logger     *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithJournal sets the failure journal escalated outcomes are recorded in.
func WithJournal(j *Journal) HandlerOption {
	return func(h *Handler) { h.journal = j }
}

// WithExtensions sets the lifecycle hook registry the handler emits to.
func WithExtensions(r *ext.Registry) HandlerOption {
	return func(h *Handler) { h.extensions = r }
}

// NewHandler creates a Handler from a classifier and a policy.
func NewHandler(classifier *Classifier, policy *Policy, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		classifier: classifier,
		policy:     policy,
		logger:     logger.With(slog.String("component", "recovery")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleError classifies a raw failure and decides its recovery outcome.
func (h *Handler) HandleError(ctx context.Context, err error, ectx ErrorContext) Outcome {
	ce := h.classifier.Classify(err, ectx)
	return h.resolve(ctx, ce, ectx)
}

// HandleNetworkError skips generic classification and maps the
// NetworkErrorType directly, preserving the same Outcome contract.
func (h *Handler) HandleNetworkError(ctx context.Context, ne *NetworkError, ectx ErrorContext) Outcome {
	ce := h.classifier.classifyNetwork(ne, ectx)
	return h.resolve(ctx, ce, ectx)
}

// resolve runs the policy and performs the side channel work: journal
// recording for unrecovered failures, structured logging, hook emission.
func (h *Handler) resolve(ctx context.Context, ce ClassifiedError, ectx ErrorContext) Outcome {
	out := h.policy.Decide(ce, ectx)

	// Retry hints are not terminal; only unrecovered ends are journaled.
	if h.journal != nil && (out.Action == ActionEscalate || out.Action == ActionFailSafe) {
		h.journal.Record(ectx, ce, out.Action)
	}

	h.log(ce, ectx, out)

	if h.extensions != nil {
		h.extensions.EmitRecoveryApplied(ctx, ectx.Operation, string(ce.Code), string(out.Action), out.Success)
	}

	return out
}

func (h *Handler) log(ce ClassifiedError, ectx ErrorContext, out Outcome) {
	attrs := []any{
		slog.String("operation", ectx.Operation),
		slog.String("stage", string(ectx.Stage)),
		slog.String("code", string(ce.Code)),
		slog.String("severity", string(ce.Severity)),
		slog.String("action", string(out.Action)),
		slog.Int("retry_count", ectx.RetryCount),
	}

	switch out.Action {
	case ActionFailSafe, ActionEscalate:
		h.logger.Error("failure not recovered", attrs...)
	case ActionRetry:
		h.logger.Warn("failure scheduled for retry", attrs...)
	default:
		h.logger.Info("failure recovered by fallback", attrs...)
	}
}
