package httpclient

import (
	"errors"
	"fmt"
)

// Kind separates failures that produced no reply from replies with an
// error status.
type Kind int

const (
	// KindTimeout is a deadline hit before a full reply was read.
	KindTimeout Kind = iota
	// KindConnection is any other transport failure: refused, reset, DNS.
	KindConnection
	// KindStatus is a complete reply with a non-2xx status.
	KindStatus
	// KindRequest is a request that could not be built.
	KindRequest
	// KindTooLarge is a reply whose body exceeded the configured limit.
	// The peer did answer.
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindStatus:
		return "status"
	case KindRequest:
		return "request"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Error is a classified client failure.
type Error struct {
	Kind Kind
	// StatusCode is set for KindStatus.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("httpclient: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("httpclient: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func statusError(code int) *Error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &Error{Kind: KindStatus, StatusCode: code}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsTimeout reports a deadline failure.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsConnection reports a non-timeout transport failure.
func IsConnection(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConnection
}

// IsTooLarge reports a reply dropped for exceeding the body limit.
func IsTooLarge(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTooLarge
}

// IsTransport reports a failure that produced no HTTP response at all.
func IsTransport(err error) bool {
	return IsTimeout(err) || IsConnection(err)
}

// StatusOf returns the reply status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindStatus {
		return e.StatusCode, true
	}
	return 0, false
}
