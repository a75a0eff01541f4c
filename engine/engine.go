package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	mcpimage "github.com/fastmcp-me/mcp-image"
	"github.com/fastmcp-me/mcp-image/backoff"
	"github.com/fastmcp-me/mcp-image/ext"
	mw "github.com/fastmcp-me/mcp-image/middleware"
	"github.com/fastmcp-me/mcp-image/operation"
	"github.com/fastmcp-me/mcp-image/recovery"
	"github.com/fastmcp-me/mcp-image/scheduler"
)

// Engine composes the scheduler and the recovery pipeline behind a single
// facade. Use New to create one from a Config.
type Engine struct {
	cfg        mcpimage.Config
	logger     *slog.Logger
	extensions *ext.Registry
	ledger     *scheduler.Ledger
	manager    *scheduler.Manager
	handler    *recovery.Handler
	journal    *recovery.Journal
	validator  mcpimage.Validator

	bo   backoff.Strategy
	mws  []mw.Middleware
	exts []ext.Extension

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers a lifecycle extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware appends middleware to the engine's execution chain,
// after the built-in recover/tracing/metrics/logging/timeout stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the retry backoff strategy used by the recovery policy.
// If not set, backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithValidator plugs in the external input validator used by ValidateInput.
func WithValidator(v mcpimage.Validator) Option {
	return func(eng *Engine) { eng.validator = v }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates an Engine from a validated Config.
func New(cfg mcpimage.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = slog.Default()
	}
	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	capacity := operation.Capacity{
		MemoryBytes:        cfg.Capacity.MemoryBytes,
		CPUPercent:         cfg.Capacity.CPUPercent,
		NetworkBytesPerSec: cfg.Capacity.NetworkBytesPerSec,
		MaxConnections:     cfg.Capacity.MaxConnections,
	}
	eng.ledger = scheduler.NewLedger(capacity, eng.logger)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/fastmcp-me/mcp-image")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/fastmcp-me/mcp-image")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	allMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.logger),
	}
	allMws = append(allMws, eng.mws...)

	managerOpts := []scheduler.ManagerOption{
		scheduler.WithQueueTimeout(cfg.QueueTimeout),
		scheduler.WithExtensions(eng.extensions),
		scheduler.WithMiddleware(allMws...),
	}
	if cfg.AdmitRate > 0 {
		managerOpts = append(managerOpts, scheduler.WithAdmitRate(cfg.AdmitRate, cfg.AdmitBurst))
	}
	eng.manager = scheduler.NewManager(eng.ledger, eng.logger, managerOpts...)

	eng.journal = recovery.NewJournal(cfg.JournalSize)
	classifier := recovery.NewClassifier(cfg.RetryCeiling)
	policy := recovery.NewPolicy(
		recovery.WithRetryCeiling(cfg.RetryCeiling),
		recovery.WithBackoff(eng.bo),
	)
	eng.handler = recovery.NewHandler(classifier, policy, eng.logger,
		recovery.WithJournal(eng.journal),
		recovery.WithExtensions(eng.extensions),
	)

	return eng, nil
}

// Execute submits an operation to the scheduler and runs fn once admitted.
// Failures come back raw; use ExecuteWithRecovery for classified outcomes.
func Execute[T any](ctx context.Context, eng *Engine, op *operation.Operation, fn func(context.Context) (T, error)) scheduler.Result[T] {
	return scheduler.Run(ctx, eng.manager, op, fn)
}

// Recovered pairs the scheduler result with a recovery outcome. When the
// result carries an error, Outcome describes how to proceed: a fallback
// resolution, a retry hint, or a sanitized terminal failure.
type Recovered[T any] struct {
	Result  scheduler.Result[T]
	Outcome recovery.Outcome
}

// ExecuteWithRecovery runs the operation and, on failure, classifies the
// error and decides its recovery outcome. Outcome is the zero value when
// the operation succeeds.
func ExecuteWithRecovery[T any](ctx context.Context, eng *Engine, op *operation.Operation, ectx recovery.ErrorContext, fn func(context.Context) (T, error)) Recovered[T] {
	if ectx.Operation == "" {
		ectx.Operation = op.Name
	}
	if ectx.SessionID.IsNil() {
		ectx.SessionID = op.SessionID
	}

	res := scheduler.Run(ctx, eng.manager, op, fn)
	if res.OK() {
		return Recovered[T]{Result: res}
	}

	out := eng.handler.HandleError(ctx, res.Err, ectx)
	return Recovered[T]{Result: res, Outcome: out}
}

// ValidateInput runs the configured validator over raw prompt text. Empty
// or whitespace-only input fails with ErrEmptyInput before the validator
// is consulted; with no validator configured, non-empty input passes
// through trimmed.
func (eng *Engine) ValidateInput(ctx context.Context, text string) (mcpimage.ValidationResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return mcpimage.ValidationResult{
			Valid:  false,
			Errors: []string{"input is empty"},
		}, mcpimage.ErrEmptyInput
	}

	if eng.validator == nil {
		return mcpimage.ValidationResult{Valid: true, NormalizedInput: trimmed}, nil
	}

	result, err := eng.validator.Validate(ctx, trimmed)
	if err != nil {
		return result, fmt.Errorf("%w: %w", mcpimage.ErrValidationFailed, err)
	}
	return result, nil
}

// HandleError routes a failure that happened outside the scheduler (for
// example during response parsing) through the recovery pipeline.
func (eng *Engine) HandleError(ctx context.Context, err error, ectx recovery.ErrorContext) recovery.Outcome {
	return eng.handler.HandleError(ctx, err, ectx)
}

// HandleNetworkError routes a tagged network failure through the recovery
// pipeline, bypassing message-based classification.
func (eng *Engine) HandleNetworkError(ctx context.Context, ne *recovery.NetworkError, ectx recovery.ErrorContext) recovery.Outcome {
	return eng.handler.HandleNetworkError(ctx, ne, ectx)
}

// Close shuts the engine down: waiting operations fail with
// ErrManagerClosed and extensions receive the shutdown hook. Running
// operations finish normally.
func (eng *Engine) Close(ctx context.Context) {
	eng.manager.Close()
	eng.extensions.EmitShutdown(ctx)
}

// Manager returns the scheduler manager.
func (eng *Engine) Manager() *scheduler.Manager { return eng.manager }

// Ledger returns the resource ledger.
func (eng *Engine) Ledger() *scheduler.Ledger { return eng.ledger }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Journal returns the failure journal.
func (eng *Engine) Journal() *recovery.Journal { return eng.journal }

// Stats returns a snapshot of scheduler activity.
func (eng *Engine) Stats() scheduler.Stats { return eng.manager.Stats() }
