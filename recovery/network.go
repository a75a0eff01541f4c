package recovery

import (
	"errors"
	"fmt"
	"net"
)

// NetworkErrorType distinguishes the failure modes of a network call.
type NetworkErrorType string

const (
	NetworkTimeout           NetworkErrorType = "timeout"
	NetworkConnectionRefused NetworkErrorType = "connection_refused"
	NetworkDNSFailure        NetworkErrorType = "dns_failure"
	NetworkTLSFailure        NetworkErrorType = "tls_failure"
	NetworkHTTPError         NetworkErrorType = "http_error"
)

// NetworkError is a failure reaching the external generation API, tagged
// with an explicit type so classification does not depend on message
// parsing. StatusCode is set for HTTP-level failures, zero otherwise.
type NetworkError struct {
	Type       NetworkErrorType
	Message    string
	StatusCode int
	cause      error
}

// NewNetworkError creates a NetworkError of the given type.
func NewNetworkError(typ NetworkErrorType, message string) *NetworkError {
	return &NetworkError{Type: typ, Message: message}
}

// NewHTTPError creates a NetworkError for an HTTP-level failure.
func NewHTTPError(statusCode int, message string) *NetworkError {
	return &NetworkError{Type: NetworkHTTPError, Message: message, StatusCode: statusCode}
}

// WrapNetworkError tags an underlying error with a network error type,
// preserving the cause for errors.Is/As.
func WrapNetworkError(typ NetworkErrorType, err error) *NetworkError {
	return &NetworkError{Type: typ, Message: err.Error(), cause: err}
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network %s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("network %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *NetworkError) Unwrap() error { return e.cause }

// AsNetworkError extracts a NetworkError from an error chain. When the
// chain carries no explicit tag but ends in a stdlib net.Error, a tagged
// equivalent is synthesized (timeouts and DNS failures are recognized).
func AsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return WrapNetworkError(NetworkDNSFailure, err), true
	}

	var stdNetErr net.Error
	if errors.As(err, &stdNetErr) {
		if stdNetErr.Timeout() {
			return WrapNetworkError(NetworkTimeout, err), true
		}
		return WrapNetworkError(NetworkConnectionRefused, err), true
	}

	return nil, false
}
