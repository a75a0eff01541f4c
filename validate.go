package mcpimage

import "context"

// ValidationResult is the outcome of input validation. NormalizedInput is
// the cleaned text the pipeline should operate on when Valid is true.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	NormalizedInput string   `json:"normalized_input,omitempty"`
}

// Validator is the external input-validation collaborator. Normalization,
// language detection, and sanitization rules live behind this interface;
// the orchestration core only consumes validation failures.
type Validator interface {
	Validate(ctx context.Context, text string) (ValidationResult, error)
}
