package recovery

import (
	"time"

	"github.com/fastmcp-me/mcp-image/backoff"
)

// Action is the decided response to a classified error.
type Action string

const (
	// ActionRetry asks the caller to retry after Outcome.RetryAfter.
	ActionRetry Action = "retry"
	// ActionFallback resolves the failure with degraded-but-usable output.
	ActionFallback Action = "fallback"
	// ActionEscalate records the failure for operators; the caller fails.
	ActionEscalate Action = "escalate"
	// ActionFailSafe fails visibly with a sanitized message.
	ActionFailSafe Action = "fail_safe"
)

// Outcome is the terminal artifact of error recovery, returned to the
// caller of the handler. Message is non-technical and safe to show an end
// user; the full classification travels in Diagnostic.
type Outcome struct {
	Success         bool            `json:"success"`
	FallbackApplied bool            `json:"fallback_applied"`
	Action          Action          `json:"recovery_action"`
	Message         string          `json:"message"`
	RetryAfter      time.Duration   `json:"retry_after,omitempty"`
	UserFacing      bool            `json:"user_facing"`
	Diagnostic      ClassifiedError `json:"diagnostic"`
}

// Sanitized user-facing messages. Raw internals never appear here.
const (
	msgFailSafe      = "Something went wrong while processing your request. Please try again in a moment."
	msgEscalated     = "An internal error occurred and has been recorded."
	msgRetry         = "A temporary issue occurred. Retrying shortly."
	msgFallbackAPI   = "Processing continued using alternative data."
	msgFallbackJSON  = "A temporary issue occurred while reading the response. Please try again."
	msgFallbackBusy  = "The system is busy right now. Your request was completed with reduced options."
	msgFallbackOther = "Processing continued with adjusted settings."
	msgEmptyInput    = "No prompt was provided, so a creative default was used instead."
)

// Policy decides the recovery action for a classified error. It is a
// state machine over (severity, retry count, user-facing flag), with
// per-code unconditional fallbacks that win regardless of severity.
type Policy struct {
	retryCeiling  int
	backoff       backoff.Strategy
	unconditional map[Code]string
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithRetryCeiling sets the retry count at which retries stop being offered.
func WithRetryCeiling(n int) PolicyOption {
	return func(p *Policy) { p.retryCeiling = n }
}

// WithBackoff sets the strategy used to compute retry delays.
func WithBackoff(b backoff.Strategy) PolicyOption {
	return func(p *Policy) { p.backoff = b }
}

// WithUnconditionalFallback registers a fallback that resolves the given
// code successfully regardless of severity, with the given message.
func WithUnconditionalFallback(code Code, message string) PolicyOption {
	return func(p *Policy) { p.unconditional[code] = message }
}

// NewPolicy creates a Policy. By default the retry ceiling is 3, delays
// come from backoff.DefaultStrategy, and empty input resolves to a
// creative default rather than a hard failure.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		retryCeiling: 3,
		backoff:      backoff.DefaultStrategy(),
		unconditional: map[Code]string{
			CodeEmptyInput: msgEmptyInput,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide maps a classified error and its context to a recovery outcome:
//
//   - An unconditional fallback for the code wins regardless of severity.
//   - Fatal: fail_safe for user-facing contexts (sanitized message),
//     escalate for internal ones (recorded by the handler's journal).
//   - Recoverable below the retry ceiling: retry for transient failure
//     classes (network, contention), fallback with a category-specific
//     reassuring message otherwise.
//   - Warning: fallback, no retry needed.
//
// Non-user-facing contexts still get a fully populated outcome; callers
// are expected not to surface the message to an end user.
func (p *Policy) Decide(ce ClassifiedError, ectx ErrorContext) Outcome {
	out := Outcome{
		UserFacing: ectx.UserFacing,
		Diagnostic: ce,
	}

	if msg, ok := p.unconditional[ce.Code]; ok {
		out.Success = true
		out.FallbackApplied = true
		out.Action = ActionFallback
		out.Message = msg
		return out
	}

	switch ce.Severity {
	case SeverityFatal:
		if ectx.UserFacing {
			out.Action = ActionFailSafe
			out.Message = msgFailSafe
		} else {
			out.Action = ActionEscalate
			out.Message = msgEscalated
		}
		return out

	case SeverityWarning:
		out.Success = true
		out.FallbackApplied = true
		out.Action = ActionFallback
		out.Message = fallbackMessage(ce.Code)
		return out

	default: // SeverityRecoverable
		if ce.Transient() && ectx.RetryCount < p.retryCeiling {
			out.Action = ActionRetry
			out.Message = msgRetry
			out.RetryAfter = p.backoff.Delay(ectx.RetryCount + 1)
			return out
		}

		out.Success = true
		out.FallbackApplied = true
		out.Action = ActionFallback
		out.Message = fallbackMessage(ce.Code)
		return out
	}
}

// fallbackMessage returns the category-specific reassuring message for a
// fallback resolution.
func fallbackMessage(code Code) string {
	switch code {
	case CodeInvalidAPIResponse:
		return msgFallbackAPI
	case CodeMalformedJSON:
		return msgFallbackJSON
	case CodeResourceContention:
		return msgFallbackBusy
	default:
		return msgFallbackOther
	}
}
