package recovery

import "github.com/fastmcp-me/mcp-image/id"

// ProcessingStage names the pipeline phase an error occurred in. Recovery
// decisions use the stage for context; the stages mirror the image
// generation pipeline.
type ProcessingStage string

const (
	// StageInputValidation covers input normalization and validation.
	StageInputValidation ProcessingStage = "input_validation"
	// StageLanguageDetection covers source language heuristics.
	StageLanguageDetection ProcessingStage = "language_detection"
	// StagePOMLStructuring covers structuring the prompt into POML.
	StagePOMLStructuring ProcessingStage = "poml_structuring"
	// StageBestPractices covers applying prompt best practices.
	StageBestPractices ProcessingStage = "best_practices"
	// StageGeneration covers the external generation API call.
	StageGeneration ProcessingStage = "generation"
	// StageResponseParsing covers decoding the API response.
	StageResponseParsing ProcessingStage = "response_parsing"
)

// ErrorContext carries the execution context a failure happened in. It is
// attached by the caller at the point of failure and only read by the
// recovery layer, never mutated.
type ErrorContext struct {
	// Operation is the name of the failing operation.
	Operation string `json:"operation"`

	// Stage is the pipeline phase the failure occurred in.
	Stage ProcessingStage `json:"stage"`

	// SessionID identifies the caller session, when known.
	SessionID id.SessionID `json:"session_id,omitzero"`

	// RetryCount is how many times this operation has been retried so far.
	RetryCount int `json:"retry_count"`

	// UserFacing is true when the ultimate caller is an interactive user
	// rather than an internal pipeline step.
	UserFacing bool `json:"user_facing"`
}
