// ABOUTME: Error taxonomy for calls to the upstream identity API
// ABOUTME: Distinguishes unreachable, rejected and contract-violating upstream responses

package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned before any upstream call when a required
// token or credential was not supplied.
var ErrMissingCredential = errors.New("missing credential")

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	// KindUnreachable covers transport failures: DNS, refused connections,
	// resets, cancelled requests.
	KindUnreachable ErrorKind = "upstream_unreachable"
	// KindRejected means the upstream answered with a non-2xx status.
	KindRejected ErrorKind = "upstream_rejected"
	// KindContractViolation means a 2xx answer lacked a required field or
	// could not be decoded.
	KindContractViolation ErrorKind = "upstream_contract_violation"
)

// UpstreamError describes a failed exchange with the identity API.
type UpstreamError struct {
	Kind       ErrorKind
	Op         string // profile, refresh, login, logout, register
	StatusCode int    // set for KindRejected and KindContractViolation
	Message    string // upstream-provided message, if any
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindRejected:
		if e.Message != "" {
			return fmt.Sprintf("%s: upstream rejected request (status %d): %s", e.Op, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: upstream rejected request (status %d)", e.Op, e.StatusCode)
	case KindContractViolation:
		return fmt.Sprintf("%s: invalid upstream response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: upstream unreachable: %v", e.Op, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" when err is not an UpstreamError.
func KindOf(err error) ErrorKind {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Kind
	}
	return ""
}

// IsInvalidToken reports whether the upstream explicitly refused the
// credential (401 or 403), as opposed to being temporarily unavailable.
func IsInvalidToken(err error) bool {
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Kind != KindRejected {
		return false
	}
	return upErr.StatusCode == http.StatusUnauthorized || upErr.StatusCode == http.StatusForbidden
}

// UpstreamMessage returns the upstream-provided message carried by err.
func UpstreamMessage(err error) string {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Message
	}
	return ""
}
