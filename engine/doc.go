// Package engine wires the orchestration subsystems together and provides
// the primary application-level API for executing generation operations.
//
// The engine package exists to break an import cycle: the root mcpimage
// package defines the shared sentinels and config (imported by operation,
// scheduler, recovery) and therefore cannot import those packages back.
// Engine sits above all subsystem packages and below the application layer.
//
// # Building an Engine
//
//	cfg := mcpimage.DefaultConfig()
//
//	eng, err := engine.New(cfg,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	)
//
// # Executing Work
//
//	op := operation.New("generate_image", operation.Requirements{
//	    MemoryBytes:        64 << 20,
//	    CPUPercent:         25,
//	    NetworkBytesPerSec: 1 << 20,
//	    Connections:        1,
//	}, operation.PriorityHigh)
//
//	res := engine.Execute(ctx, eng, op, func(ctx context.Context) (Image, error) {
//	    return callGenerationAPI(ctx, prompt)
//	})
//
// ExecuteWithRecovery additionally routes failures through the error
// classifier and recovery policy, returning a structured outcome instead
// of a raw error.
//
// # Options
//
//   - [WithLogger] — set the structured logger
//   - [WithExtension] — register a lifecycle extension
//   - [WithMiddleware] — add a middleware to the execution chain
//   - [WithBackoff] — set the retry backoff strategy
//   - [WithValidator] — plug in the external input validator
//   - [WithTracerProvider] — set the OpenTelemetry tracer provider
//   - [WithMeterProvider] — set the OpenTelemetry meter provider
package engine
