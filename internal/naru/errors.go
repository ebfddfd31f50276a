package naru

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HTTPError is returned when the upstream answers with a non-2xx status
type HTTPError struct {
	Status int
	URL    string // authKey redacted
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %d %s (%s)", e.Status, http.StatusText(e.Status), e.URL)
}

// NetworkError is returned when a request cannot complete or its body cannot be parsed
type NetworkError struct {
	Op  string // request, read, decode, circuit, wait
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError carries an error message the upstream embeds in a 200 response
type APIError struct {
	Message string
	URL     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error: %s (%s)", e.Message, e.URL)
}

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// ErrorCategory categorizes errors for the circuit breaker and for logs
type ErrorCategory int

const (
	// ErrorRetryable - temporary errors, the upstream may recover
	ErrorRetryable ErrorCategory = iota
	// ErrorNonRetryable - permanent errors for this request only
	ErrorNonRetryable
	// ErrorRateLimited - the upstream asked us to slow down
	ErrorRateLimited
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorRetryable:
		return "retryable"
	case ErrorNonRetryable:
		return "non_retryable"
	case ErrorRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// CategorizeError determines how an error should be treated
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorRetryable
	}

	if errors.Is(err, context.Canceled) {
		return ErrorNonRetryable
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ErrorNonRetryable
	}

	switch StatusCode(err) {
	case http.StatusTooManyRequests:
		return ErrorRateLimited
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusMethodNotAllowed,
		http.StatusGone,
		http.StatusRequestEntityTooLarge:
		return ErrorNonRetryable
	case 0:
	default:
		return ErrorRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorRetryable
	}

	var nwErr *NetworkError
	if errors.As(err, &nwErr) && nwErr.Op == "decode" {
		return ErrorRetryable
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"no such host",
		"temporary failure",
		"timeout",
		"eof",
		"broken pipe",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return ErrorRetryable
		}
	}

	return ErrorNonRetryable
}
