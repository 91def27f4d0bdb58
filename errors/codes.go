package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Availability errors (retryable by the caller).
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	ErrCodeNoHealthyInstance  ErrorCode = "NO_HEALTHY_INSTANCE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Lookup errors.
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeRouteNotFound ErrorCode = "ROUTE_NOT_FOUND"
)

// Input errors.
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Authentication errors.
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Downstream and internal errors.
const (
	ErrCodeDownstream    ErrorCode = "DOWNSTREAM_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindUnauthorized Kind = "Unauthorized"
	KindNotFound     Kind = "NotFound"
	KindUnavailable  Kind = "ServiceUnavailable"
	KindDownstream   Kind = "DownstreamError"
	KindInternal     Kind = "Internal"
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeServiceUnavailable: KindUnavailable,
	ErrCodeCircuitOpen:        KindUnavailable,
	ErrCodeNoHealthyInstance:  KindUnavailable,
	ErrCodeConnectionFailed:   KindUnavailable,
	ErrCodeTimeout:            KindUnavailable,
	ErrCodeRateLimited:        KindUnavailable,
	ErrCodeNotFound:           KindNotFound,
	ErrCodeRouteNotFound:      KindNotFound,
	ErrCodeInvalidInput:       KindValidation,
	ErrCodeMissingField:       KindValidation,
	ErrCodeUnauthorized:       KindUnauthorized,
	ErrCodeTokenExpired:       KindUnauthorized,
	ErrCodeInvalidToken:       KindUnauthorized,
	ErrCodeDownstream:         KindDownstream,
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeCircuitOpen:        true,
	ErrCodeNoHealthyInstance:  true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
}

// IsRetryableCode reports whether the code marks a transient failure.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// KindOf returns the category for a code. Unknown codes are KindInternal.
func KindOf(code ErrorCode) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindInternal
}
