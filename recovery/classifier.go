package recovery

import (
	"encoding/json"
	"errors"
	"regexp"

	mcpimage "github.com/fastmcp-me/mcp-image"
)

// Code is a stable, enumerated error code derived from a raw failure.
type Code string

const (
	CodeMalformedJSON      Code = "MALFORMED_JSON"
	CodeInvalidAPIResponse Code = "INVALID_API_RESPONSE"
	CodeNetworkTimeout     Code = "NETWORK_TIMEOUT"
	CodeNetworkConnRefused Code = "NETWORK_CONNECTION_REFUSED"
	CodeNetworkDNSFailure  Code = "NETWORK_DNS_FAILURE"
	CodeNetworkTLSFailure  Code = "NETWORK_TLS_FAILURE"
	CodeNetworkHTTPError   Code = "NETWORK_HTTP_ERROR"
	CodeResourceContention Code = "RESOURCE_CONTENTION"
	CodeEmptyInput         Code = "EMPTY_INPUT"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

// Severity grades how a classified error should be treated.
type Severity string

const (
	// SeverityFatal means the failure cannot be recovered in place.
	SeverityFatal Severity = "fatal"
	// SeverityRecoverable means a retry or fallback can resolve it.
	SeverityRecoverable Severity = "recoverable"
	// SeverityWarning means processing can continue with a fallback.
	SeverityWarning Severity = "warning"
)

// ClassifiedError is the normalized form of a raw failure: a stable code,
// a severity, and a free-form diagnostic payload. It is derived
// deterministically from the raw error and its context and never
// persisted. The raw error is retained only as an opaque cause.
type ClassifiedError struct {
	Code        Code           `json:"code"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`

	cause error
}

// Cause returns the raw error this classification was derived from.
func (c ClassifiedError) Cause() error { return c.cause }

// Transient reports whether the code names a failure class that a plain
// retry can plausibly resolve.
func (c ClassifiedError) Transient() bool {
	switch c.Code {
	case CodeNetworkTimeout, CodeNetworkConnRefused, CodeNetworkDNSFailure,
		CodeNetworkTLSFailure, CodeNetworkHTTPError, CodeResourceContention:
		return true
	default:
		return false
	}
}

// Message patterns for failures that arrive as bare errors from SDKs and
// parsers rather than typed values.
var (
	malformedJSONPattern = regexp.MustCompile(`(?i)(unexpected token|unexpected end of (json|input)|invalid json|malformed|cannot parse|parse error)`)
	missingFieldPattern  = regexp.MustCompile(`(?i)(required field|missing from|field .* (is )?missing)`)
	quotedNamePattern    = regexp.MustCompile(`"([A-Za-z0-9_.\[\]-]+)"`)
)

// Classifier maps raw failures to ClassifiedError values. Classification
// is a pure function of the error shape/message and the context: no I/O,
// no side effects, identical inputs produce identical outputs.
type Classifier struct {
	// RetryCeiling is the retry count at or beyond which otherwise
	// recoverable failures escalate to fatal.
	RetryCeiling int
}

// NewClassifier creates a Classifier with the given retry ceiling.
func NewClassifier(retryCeiling int) *Classifier {
	return &Classifier{RetryCeiling: retryCeiling}
}

// Classify derives the normalized form of err. Rules are evaluated in
// order and the first match wins:
//
//  1. Empty-input sentinel → EMPTY_INPUT (warning).
//  2. Scheduler contention sentinel → RESOURCE_CONTENTION.
//  3. Malformed structured data (json package error types or message
//     shape) → MALFORMED_JSON.
//  4. Required field missing from an external response → INVALID_API_RESPONSE,
//     with the missing field names extracted into diagnostics.
//  5. Tagged or recognizable network failure → code derived from the
//     NetworkErrorType; fatal once the retry ceiling is reached.
//  6. Anything else → UNKNOWN_ERROR; fatal once the retry ceiling is
//     reached.
func (c *Classifier) Classify(err error, ectx ErrorContext) ClassifiedError {
	if err == nil {
		return ClassifiedError{Code: CodeUnknown, Severity: SeverityWarning, Message: "no error"}
	}

	msg := err.Error()

	if errors.Is(err, mcpimage.ErrEmptyInput) {
		return ClassifiedError{
			Code:     CodeEmptyInput,
			Severity: SeverityWarning,
			Message:  msg,
			Diagnostics: map[string]any{
				"stage": string(ectx.Stage),
			},
			cause: err,
		}
	}

	if errors.Is(err, mcpimage.ErrSystemBusy) {
		return ClassifiedError{
			Code:     CodeResourceContention,
			Severity: SeverityRecoverable,
			Message:  msg,
			cause:    err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || malformedJSONPattern.MatchString(msg) {
		return ClassifiedError{
			Code:     CodeMalformedJSON,
			Severity: SeverityRecoverable,
			Message:  msg,
			cause:    err,
		}
	}

	if missingFieldPattern.MatchString(msg) {
		return ClassifiedError{
			Code:     CodeInvalidAPIResponse,
			Severity: SeverityRecoverable,
			Message:  msg,
			Diagnostics: map[string]any{
				"missing_fields": extractQuotedNames(msg),
			},
			cause: err,
		}
	}

	if ne, ok := AsNetworkError(err); ok {
		return c.classifyNetwork(ne, ectx)
	}

	severity := SeverityRecoverable
	if ectx.RetryCount >= c.RetryCeiling {
		severity = SeverityFatal
	}
	return ClassifiedError{
		Code:     CodeUnknown,
		Severity: severity,
		Message:  msg,
		cause:    err,
	}
}

// classifyNetwork maps a tagged network failure to its code. The severity
// is recoverable until the context's retry count reaches the ceiling.
func (c *Classifier) classifyNetwork(ne *NetworkError, ectx ErrorContext) ClassifiedError {
	severity := SeverityRecoverable
	if ectx.RetryCount >= c.RetryCeiling {
		severity = SeverityFatal
	}

	diag := map[string]any{
		"network_error_type": string(ne.Type),
	}
	if ne.StatusCode != 0 {
		diag["status_code"] = ne.StatusCode
	}

	return ClassifiedError{
		Code:        CodeForNetworkType(ne.Type),
		Severity:    severity,
		Message:     ne.Error(),
		Diagnostics: diag,
		cause:       ne,
	}
}

// CodeForNetworkType maps a NetworkErrorType to its stable error code.
func CodeForNetworkType(typ NetworkErrorType) Code {
	switch typ {
	case NetworkTimeout:
		return CodeNetworkTimeout
	case NetworkConnectionRefused:
		return CodeNetworkConnRefused
	case NetworkDNSFailure:
		return CodeNetworkDNSFailure
	case NetworkTLSFailure:
		return CodeNetworkTLSFailure
	case NetworkHTTPError:
		return CodeNetworkHTTPError
	default:
		return CodeUnknown
	}
}

// extractQuotedNames pulls double-quoted identifiers out of an error
// message, e.g. the field names in a "required field" failure.
func extractQuotedNames(msg string) []string {
	matches := quotedNamePattern.FindAllStringSubmatch(msg, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
