package auth

import (
	"errors"
	"strings"

	"github.com/kbukum/relaygate/auth/jwt"
	apperrors "github.com/kbukum/relaygate/errors"
)

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("auth: missing bearer token")

// TokenValidator validates a token string and returns the parsed claims.
// Middleware depends on this contract rather than on a concrete scheme.
type TokenValidator interface {
	ValidateToken(token string) (any, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(token string) (any, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (any, error) {
	return f(token)
}

// NewValidator wraps a validation function, typically jwt.Service.ValidatorFunc.
func NewValidator(fn func(string) (any, error)) TokenValidator {
	return TokenValidatorFunc(fn)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate verifies the bearer token in an Authorization header value
// and maps failures onto the gateway's Unauthorized codes.
func Authenticate(v TokenValidator, header string) (any, *apperrors.AppError) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, apperrors.Unauthorized("Missing bearer token.")
	}
	claims, err := v.ValidateToken(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, apperrors.TokenExpired().WithCause(err)
		}
		return nil, apperrors.InvalidToken().WithCause(err)
	}
	return claims, nil
}
