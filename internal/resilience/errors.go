package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransportError wraps a completion-service transport failure that is safe
// to retry (timeouts, 429, 5xx). It is never propagated raw to pipeline
// callers: the completion wrapper degrades to a mock response instead.
type TransportError struct {
	Err        error
	StatusCode int
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps an error as a retryable transport failure with an
// optional HTTP status code.
func NewTransportError(err error, statusCode int) *TransportError {
	return &TransportError{Err: err, StatusCode: statusCode}
}

// IsTransport returns true if the error (or any error in its chain) is a
// TransportError, or if it matches common transient network patterns.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRetryableStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
