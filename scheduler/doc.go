// Package scheduler provides resource-aware admission control for
// concurrent operations: a Ledger that tracks aggregate consumption
// against fixed capacity, a priority wait-list for operations that do not
// fit, and a Manager that wraps caller operations with admission, queuing,
// execution through middleware, and release.
//
// Concurrency is bounded only by resource capacity, never by a fixed
// worker count: unrelated operations run fully in parallel, and the only
// serialized sections are ledger bookkeeping and wait-list maintenance.
package scheduler
