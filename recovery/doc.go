// Package recovery provides the orchestration error layer: a Classifier
// that maps raw failures to stable error codes and severities, a Policy
// that decides per failure whether to retry, fall back, escalate, or fail
// safe, and a Handler composing both into a single entry point producing a
// structured, user-presentable Outcome.
//
// Classification is a pure function of the error and its context: no
// I/O, no side effects, idempotent. All user-facing messages produced by
// the policy are sanitized: raw internals never reach an end user.
package recovery
