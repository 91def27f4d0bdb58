// Package jwt issues and verifies bearer tokens, generic over the claims
// type.
//
//	type Claims struct {
//	    jwt.RegisteredClaims
//	    ID    string `json:"id"`
//	    Email string `json:"email"`
//	}
//
//	svc, err := jwt.NewService(&cfg, func() *Claims { return &Claims{} })
//	claims, err := svc.Parse(token)
//	if jwt.IsExpired(err) { ... }
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// RegisteredClaims is embedded by claims types.
type RegisteredClaims = gojwt.RegisteredClaims

// NewNumericDate builds a claims timestamp.
var NewNumericDate = gojwt.NewNumericDate

// ErrCannotSign is returned by Generate when only a public key is known.
var ErrCannotSign = errors.New("jwt: no signing key for this method")

// Service handles tokens carrying claims of type T.
type Service[T gojwt.Claims] struct {
	method   gojwt.SigningMethod
	verify   any
	sign     any
	ttl      time.Duration
	issuer   string
	audience []string
	now      func() time.Time
	parser   *gojwt.Parser
	newEmpty func() T
}

// NewService validates cfg and loads its keys. newEmpty supplies a fresh
// T for each Parse.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	verify, sign, err := cfg.keys()
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	method := methods[cfg.Method]
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{method.Alg()}),
		gojwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, gojwt.WithAudience(cfg.Audience...))
	}

	return &Service[T]{
		method:   method,
		verify:   verify,
		sign:     sign,
		ttl:      cfg.AccessTokenTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
		parser:   gojwt.NewParser(opts...),
		newEmpty: newEmpty,
	}, nil
}

// Generate signs claims unchanged.
func (s *Service[T]) Generate(claims T) (string, error) {
	if s.sign == nil {
		return "", ErrCannotSign
	}
	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString(s.sign)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// GenerateAccess stamps iat, exp, iss and aud on claims types that have a
// SetDefaults method, then signs.
func (s *Service[T]) GenerateAccess(claims T) (string, error) {
	type defaulter interface {
		SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string)
	}
	if d, ok := any(claims).(defaulter); ok {
		d.SetDefaults(s.now(), s.ttl, s.issuer, s.audience)
	}
	return s.Generate(claims)
}

// Parse verifies signature, algorithm, expiry and the configured issuer and
// audience. Errors wrap golang-jwt's sentinels for IsExpired.
func (s *Service[T]) Parse(token string) (T, error) {
	var zero T
	parsed, err := s.parser.ParseWithClaims(token, s.newEmpty(), func(*gojwt.Token) (any, error) {
		return s.verify, nil
	})
	if err != nil {
		return zero, fmt.Errorf("jwt: %w", err)
	}
	claims, ok := parsed.Claims.(T)
	if !ok || !parsed.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	return claims, nil
}

// ValidatorFunc exposes Parse with untyped claims for auth.NewValidator.
func (s *Service[T]) ValidatorFunc() func(string) (any, error) {
	return func(token string) (any, error) { return s.Parse(token) }
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, gojwt.ErrTokenExpired)
}
