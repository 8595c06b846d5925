package trapi

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// TransportErrorType categorizes the type of transport failure.
type TransportErrorType int

const (
	// TransportErrorUnknown indicates an unclassified transport error.
	TransportErrorUnknown TransportErrorType = iota
	// TransportErrorTLS indicates a TLS/certificate verification error.
	TransportErrorTLS
	// TransportErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	TransportErrorNetwork
	// TransportErrorTimeout indicates a connection timeout.
	TransportErrorTimeout
	// TransportErrorDNS indicates a DNS resolution failure.
	TransportErrorDNS
)

// String returns a human-readable name for the transport error type.
func (t TransportErrorType) String() string {
	switch t {
	case TransportErrorTLS:
		return "TLS certificate error"
	case TransportErrorNetwork:
		return "Network error"
	case TransportErrorTimeout:
		return "Connection timeout"
	case TransportErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	// URL is the address that could not be reached.
	URL string
	// Type categorizes the failure.
	Type TransportErrorType
	// Reason is the underlying error.
	Reason error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s reaching %s: %v", e.Type, e.URL, e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Reason
}

// ProtocolError means the server answered, but not in a way the protocol allows.
type ProtocolError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected response from %s (HTTP %d): %s", e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("unexpected response from %s: %s", e.URL, e.Reason)
}

// PollTimeoutError means an async job did not reach a terminal state in time.
type PollTimeoutError struct {
	JobID string
	// Budget is the polling budget that was exhausted.
	Budget time.Duration
	// LastStatus is the most recent job status seen, if any.
	LastStatus string
}

func (e *PollTimeoutError) Error() string {
	last := e.LastStatus
	if last == "" {
		last = "no status received"
	}
	return fmt.Sprintf("job %s did not finish within %v (last status: %s)", e.JobID, e.Budget, last)
}

// ClassifyTransportError analyzes an error and returns a TransportError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyTransportError(err error, target string) *TransportError {
	if err == nil {
		return nil
	}

	var existing *TransportError
	if errors.As(err, &existing) {
		return existing
	}

	// Check for TLS/certificate errors
	if isTLSError(err) {
		return &TransportError{URL: target, Type: TransportErrorTLS, Reason: err}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{URL: target, Type: TransportErrorDNS, Reason: err}
	}

	// Check for timeout errors
	if isTimeoutError(err) {
		return &TransportError{URL: target, Type: TransportErrorTimeout, Reason: err}
	}

	// Check for network errors (connection refused, unreachable, etc.)
	if isNetworkError(err.Error()) {
		return &TransportError{URL: target, Type: TransportErrorNetwork, Reason: err}
	}

	return &TransportError{URL: target, Type: TransportErrorUnknown, Reason: err}
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
		"EOF",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
