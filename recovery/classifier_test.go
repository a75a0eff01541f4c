package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	mcpimage "github.com/fastmcp-me/mcp-image"
)

// ---------------------------------------------------------------------------
// Rule ordering and codes
// ---------------------------------------------------------------------------

func TestClassify_EmptyInputSentinel(t *testing.T) {
	c := NewClassifier(3)
	err := fmt.Errorf("validate prompt: %w", mcpimage.ErrEmptyInput)

	ce := c.Classify(err, ErrorContext{Stage: StageInputValidation})
	if ce.Code != CodeEmptyInput {
		t.Fatalf("expected EMPTY_INPUT, got %s", ce.Code)
	}
	if ce.Severity != SeverityWarning {
		t.Fatalf("empty input is a warning, got %s", ce.Severity)
	}
}

func TestClassify_ResourceContention(t *testing.T) {
	c := NewClassifier(3)
	err := fmt.Errorf("run: %w", mcpimage.ErrSystemBusy)

	ce := c.Classify(err, ErrorContext{})
	if ce.Code != CodeResourceContention {
		t.Fatalf("expected RESOURCE_CONTENTION, got %s", ce.Code)
	}
	if !ce.Transient() {
		t.Fatal("contention must be transient")
	}
}

func TestClassify_JSONSyntaxError(t *testing.T) {
	c := NewClassifier(3)
	var target map[string]any
	err := json.Unmarshal([]byte(`{"broken":`), &target)
	if err == nil {
		t.Fatal("setup: expected a JSON error")
	}

	ce := c.Classify(err, ErrorContext{Stage: StageResponseParsing})
	if ce.Code != CodeMalformedJSON {
		t.Fatalf("expected MALFORMED_JSON, got %s", ce.Code)
	}
}

func TestClassify_MalformedJSONByMessage(t *testing.T) {
	c := NewClassifier(3)

	for _, msg := range []string{
		"Unexpected token < in JSON at position 0",
		"unexpected end of JSON input",
		"cannot parse response body",
	} {
		ce := c.Classify(errors.New(msg), ErrorContext{})
		if ce.Code != CodeMalformedJSON {
			t.Fatalf("message %q: expected MALFORMED_JSON, got %s", msg, ce.Code)
		}
	}
}

func TestClassify_MissingFieldExtractsNames(t *testing.T) {
	c := NewClassifier(3)
	err := errors.New(`Required field "structuredPrompt" missing from API response`)

	ce := c.Classify(err, ErrorContext{Stage: StageBestPractices})
	if ce.Code != CodeInvalidAPIResponse {
		t.Fatalf("expected INVALID_API_RESPONSE, got %s", ce.Code)
	}

	fields, ok := ce.Diagnostics["missing_fields"].([]string)
	if !ok || len(fields) != 1 || fields[0] != "structuredPrompt" {
		t.Fatalf("expected missing_fields [structuredPrompt], got %v", ce.Diagnostics["missing_fields"])
	}
}

func TestClassify_NetworkErrorTypes(t *testing.T) {
	c := NewClassifier(3)

	cases := []struct {
		typ  NetworkErrorType
		code Code
	}{
		{NetworkTimeout, CodeNetworkTimeout},
		{NetworkConnectionRefused, CodeNetworkConnRefused},
		{NetworkDNSFailure, CodeNetworkDNSFailure},
		{NetworkTLSFailure, CodeNetworkTLSFailure},
		{NetworkHTTPError, CodeNetworkHTTPError},
	}
	for _, tc := range cases {
		ne := NewNetworkError(tc.typ, "call failed")
		ce := c.Classify(fmt.Errorf("generate: %w", ne), ErrorContext{})
		if ce.Code != tc.code {
			t.Fatalf("type %s: expected %s, got %s", tc.typ, tc.code, ce.Code)
		}
		if ce.Severity != SeverityRecoverable {
			t.Fatalf("type %s: expected recoverable below ceiling, got %s", tc.typ, ce.Severity)
		}
	}
}

func TestClassify_HTTPErrorCarriesStatusCode(t *testing.T) {
	c := NewClassifier(3)
	ne := NewHTTPError(503, "service unavailable")

	ce := c.Classify(ne, ErrorContext{})
	if ce.Code != CodeNetworkHTTPError {
		t.Fatalf("expected NETWORK_HTTP_ERROR, got %s", ce.Code)
	}
	if got := ce.Diagnostics["status_code"]; got != 503 {
		t.Fatalf("expected status_code 503 in diagnostics, got %v", got)
	}
}

func TestClassify_UnknownError(t *testing.T) {
	c := NewClassifier(3)

	ce := c.Classify(errors.New("something odd happened"), ErrorContext{})
	if ce.Code != CodeUnknown {
		t.Fatalf("expected UNKNOWN_ERROR, got %s", ce.Code)
	}
	if ce.Severity != SeverityRecoverable {
		t.Fatalf("unknown below ceiling is recoverable, got %s", ce.Severity)
	}
}

// ---------------------------------------------------------------------------
// Retry ceiling and determinism
// ---------------------------------------------------------------------------

func TestClassify_FatalAtRetryCeiling(t *testing.T) {
	c := NewClassifier(3)
	ne := NewNetworkError(NetworkTimeout, "timed out")

	ce := c.Classify(ne, ErrorContext{RetryCount: 3})
	if ce.Severity != SeverityFatal {
		t.Fatalf("at the ceiling the failure is fatal, got %s", ce.Severity)
	}

	ce = c.Classify(errors.New("mystery"), ErrorContext{RetryCount: 5})
	if ce.Severity != SeverityFatal {
		t.Fatalf("unknown past the ceiling is fatal, got %s", ce.Severity)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(3)
	err := errors.New(`Required field "imageUrl" missing from API response`)
	ectx := ErrorContext{Stage: StageResponseParsing, RetryCount: 1}

	first := c.Classify(err, ectx)
	second := c.Classify(err, ectx)
	if first.Code != second.Code || first.Severity != second.Severity || first.Message != second.Message {
		t.Fatalf("classification must be deterministic: %+v vs %+v", first, second)
	}
}

func TestClassify_PreservesCause(t *testing.T) {
	c := NewClassifier(3)
	root := errors.New("root cause")

	ce := c.Classify(fmt.Errorf("wrapped: %w", root), ErrorContext{})
	if !errors.Is(ce.Cause(), root) {
		t.Fatal("classification must retain the raw error as cause")
	}
}

func TestExtractQuotedNames(t *testing.T) {
	got := extractQuotedNames(`fields "alpha" and "beta.gamma" are required`)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta.gamma" {
		t.Fatalf("extraction mismatch: %v", got)
	}
}
