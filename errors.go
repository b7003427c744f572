package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/sony/gobreaker"
)

// ErrorKind classifies a non-fatal collector failure.
type ErrorKind string

const (
	KindAuthFailure ErrorKind = "AuthFailure"
	KindThrottled   ErrorKind = "Throttled"
	KindNotFound    ErrorKind = "NotFound"
	KindUnsupported ErrorKind = "Unsupported"
	KindUnknown     ErrorKind = "Unknown"
)

// ScopeError is the only fatal error of a crawl: the root compartment could
// not be resolved, so there is nothing to inventory.
type ScopeError struct {
	RootID string
	Err    error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("cannot resolve root compartment %s: %v", e.RootID, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// errServiceUnavailable marks a collector whose service client never
// initialized (region or tenancy does not expose the service).
var errServiceUnavailable = errors.New("service client unavailable")

// ClassifyError maps an error from a collector invocation to an ErrorKind.
// OCI service errors carry an HTTP status; everything else falls back to
// string matching on well-known OCI error text.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, errServiceUnavailable) {
		return KindUnsupported
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindThrottled
	}
	// A call that ran out its per-call budget is indistinguishable from a
	// throttled backend; both are retriable.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindThrottled
	}

	if se, ok := common.IsServiceError(err); ok {
		switch se.GetHTTPStatusCode() {
		case 401, 403:
			return KindAuthFailure
		case 404:
			return KindNotFound
		case 429:
			return KindThrottled
		case 405, 501:
			return KindUnsupported
		}
		switch se.GetCode() {
		case "NotAuthenticated", "NotAuthorizedOrNotFound", "SignUpRequired":
			return KindAuthFailure
		case "TooManyRequests":
			return KindThrottled
		}
		return KindUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "notauthorized") || strings.Contains(msg, "notauthenticated") || strings.Contains(msg, "forbidden"):
		return KindAuthFailure
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "timeout"):
		return KindThrottled
	case strings.Contains(msg, "notfound") || strings.Contains(msg, "does not exist"):
		return KindNotFound
	case strings.Contains(msg, "not supported") || strings.Contains(msg, "not available in this region"):
		return KindUnsupported
	}
	return KindUnknown
}

// isRetriable reports whether a failure of the given kind is worth retrying
// with backoff before being recorded as terminal.
func isRetriable(kind ErrorKind) bool {
	return kind == KindThrottled
}

// tripsBreaker reports whether a failure should count against the service's
// circuit breaker. Expected conditions (missing service, empty compartment,
// denied scope) must not trip it.
func tripsBreaker(kind ErrorKind) bool {
	return kind == KindThrottled || kind == KindUnknown
}
