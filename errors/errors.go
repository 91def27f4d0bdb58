package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type surfaced at the HTTP boundary.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`

	// Body and ContentType hold a downstream reply that is relayed verbatim.
	Body        []byte `json:"-"`
	ContentType string `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Kind returns the error category.
func (e *AppError) Kind() Kind { return KindOf(e.Code) }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with retryable detection from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- ValidationError ---

// Validation reports malformed input; no downstream call is attempted.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// MissingField reports a required field or parameter that was not supplied.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest).
		WithDetail("field", field)
}

// --- Unauthorized ---

func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "Token has expired.", http.StatusUnauthorized)
}

func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid authentication token.", http.StatusUnauthorized)
}

// --- NotFound ---

func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// RouteNotFound reports a request that matched no route rule.
func RouteNotFound(method, path string) *AppError {
	return New(ErrCodeRouteNotFound, fmt.Sprintf("No route for %s %s", method, path), http.StatusNotFound).
		WithDetail("method", method).
		WithDetail("path", path)
}

// --- ServiceUnavailable ---

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable.", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// CircuitOpen reports a call refused by an open breaker.
func CircuitOpen(service string) *AppError {
	return New(ErrCodeCircuitOpen, fmt.Sprintf("Circuit open for %s", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// NoHealthyInstance reports a registry lookup with no UP candidate.
func NoHealthyInstance(service string) *AppError {
	return New(ErrCodeNoHealthyInstance, fmt.Sprintf("%s unavailable: no healthy instance", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, fmt.Sprintf("Unable to reach %s", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// Timeout reports an outbound call that exceeded its deadline. It is
// surfaced as 503, the same as an unreachable destination.
func Timeout(service string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s did not respond in time", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// ReplyTooLarge reports a destination reply that exceeded the relay limit.
func ReplyTooLarge(service string) *AppError {
	return New(ErrCodeDownstream, fmt.Sprintf("%s reply exceeds the size limit", service), http.StatusBadGateway).
		WithDetail("service", service)
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests.", http.StatusTooManyRequests)
}

// --- DownstreamError ---

// Downstream wraps a non-2xx reply so it reaches the caller unmodified.
func Downstream(service string, status int, body []byte, contentType string) *AppError {
	e := New(ErrCodeDownstream, fmt.Sprintf("%s responded with status %d", service, status), status).
		WithDetail("service", service)
	e.Body = body
	e.ContentType = contentType
	return e
}

// --- Internal ---

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A registry store error occurred.", http.StatusInternalServerError).WithCause(cause)
}
