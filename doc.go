// Package mcpimage provides the orchestration core for the image generation
// service: a resource-aware concurrent scheduler and a uniform error
// recovery layer.
//
// The scheduler admits operations against fixed capacity ceilings (memory,
// CPU, network bandwidth, connections) and queues the rest by priority.
// The recovery layer classifies raw failures into stable error codes and
// decides, per failure, whether to retry, fall back, escalate, or fail safe.
//
// # Quick Start
//
//	eng, err := engine.New(mcpimage.DefaultConfig())
//	res := engine.Execute(ctx, eng, op, func(ctx context.Context) (string, error) {
//	    return callGenerationAPI(ctx, prompt)
//	})
//
// # Architecture
//
// Each concern lives in its own package: operation (descriptors), scheduler
// (ledger, wait-list, manager), recovery (classifier, policy, handler),
// middleware (execution wrappers), ext (lifecycle hooks), engine (wiring).
// This root package holds only shared sentinels, configuration, and the
// narrow interfaces external collaborators are consumed through.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package mcpimage
