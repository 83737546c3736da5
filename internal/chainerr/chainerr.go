// Package chainerr classifies the errors that can cross a provider boundary.
//
// Every error returned by a provider, the fee provider, or the client MUST be
// one of the kinds below so that the retry wrapper and the HTTP front end can
// make decisions (retry vs. give up, 4xx vs. 502) from one source of truth
// instead of duplicating classification logic at each call site.
package chainerr

import (
	"errors"
	"fmt"
)

// Classification says whether a retry is worth attempting.
type Classification int

const (
	// NonRetryable errors will not succeed on retry (bad input, unknown chain).
	NonRetryable Classification = iota
	// Retryable errors are transient (upstream 5xx/429, network error).
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "non-retryable"
}

// Kind identifies the error family, independent of the offending provider.
type Kind string

const (
	KindUnsupportedChain  Kind = "unsupported_chain"
	KindUpstreamHTTP      Kind = "upstream_http_error"
	KindUpstreamDecode    Kind = "upstream_decode_error"
	KindUpstreamRateLimit Kind = "upstream_rate_limited"
	KindInvalidArgument   Kind = "invalid_argument"
	KindCancelled         Kind = "cancelled"
)

// Error is the one error type every provider, fee provider, and the client
// return across package boundaries.
type Error struct {
	Kind           Kind
	Message        string
	Classification Classification
	Status         int // upstream HTTP status, when Kind == KindUpstreamHTTP
	Cause          error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// UnsupportedChain reports that chainID has no registered provider.
func UnsupportedChain(chainID string) *Error {
	return &Error{
		Kind:           KindUnsupportedChain,
		Message:        fmt.Sprintf("unsupported chain: %s", chainID),
		Classification: NonRetryable,
	}
}

// UpstreamHTTP wraps a non-2xx upstream response. 429 and 5xx are
// retryable. status == 0 means the request never got a response at all
// (connection reset, DNS failure, timeout) and is retryable too.
func UpstreamHTTP(provider string, status int) *Error {
	class := NonRetryable
	if status == 0 || status == 429 || status >= 500 {
		class = Retryable
	}
	return &Error{
		Kind:           KindUpstreamHTTP,
		Message:        fmt.Sprintf("%s returned HTTP %d", provider, status),
		Classification: class,
		Status:         status,
	}
}

// UpstreamDecode wraps a JSON decode failure. Never retryable: the upstream
// is either serving a schema we don't understand or corrupt data, and retrying
// the same payload will not fix that.
func UpstreamDecode(provider string, cause error) *Error {
	return &Error{
		Kind:           KindUpstreamDecode,
		Message:        fmt.Sprintf("%s: failed to decode upstream response", provider),
		Classification: NonRetryable,
		Cause:          cause,
	}
}

// InvalidArgument reports a caller error (bad height range, malformed address).
func InvalidArgument(message string) *Error {
	return &Error{
		Kind:           KindInvalidArgument,
		Message:        message,
		Classification: NonRetryable,
	}
}

// Cancelled reports that the caller's context was cancelled mid-flight.
func Cancelled(cause error) *Error {
	return &Error{
		Kind:           KindCancelled,
		Message:        "request cancelled",
		Classification: NonRetryable,
		Cause:          cause,
	}
}

// IsRetryable reports whether err (or an error it wraps) should be retried.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Classification == Retryable
	}
	return false
}
