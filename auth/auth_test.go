package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/kbukum/relaygate/auth/jwt"
	apperrors "github.com/kbukum/relaygate/errors"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"Bearer abc.def", "abc.def", nil},
		{"bearer abc", "abc", nil},
		{"Bearer   ", "", ErrMissingToken},
		{"Basic dXNlcg==", "", ErrMissingToken},
		{"", "", ErrMissingToken},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if !errors.Is(err, tt.err) {
			t.Errorf("%q: expected err %v, got %v", tt.header, tt.err, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.header, tt.want, got)
		}
	}
}

func TestNewValidator(t *testing.T) {
	v := NewValidator(func(token string) (any, error) {
		if token == "ok" {
			return "claims", nil
		}
		return nil, errors.New("bad")
	})
	if c, err := v.ValidateToken("ok"); err != nil || c != "claims" {
		t.Errorf("unexpected result %v %v", c, err)
	}
	if _, err := v.ValidateToken("nope"); err == nil {
		t.Error("expected error")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.JWT.Secret != DefaultSecret {
		t.Errorf("expected default secret, got %q", cfg.JWT.Secret)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("zero config must gate auth-required rules")
	}
}

func TestAuthenticate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cfg := &jwt.Config{Secret: DefaultSecret, Now: func() time.Time { return now }}
	svc, err := jwt.NewService(cfg, func() *jwt.RegisteredClaims { return &jwt.RegisteredClaims{} })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	v := NewValidator(svc.ValidatorFunc())

	valid, err := svc.Generate(&jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expired, err := svc.Generate(&jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, appErr := Authenticate(v, "Bearer "+valid)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if claims.(*jwt.RegisteredClaims).Subject != "u-1" {
		t.Errorf("unexpected claims %+v", claims)
	}

	tests := []struct {
		header string
		code   apperrors.ErrorCode
	}{
		{"", apperrors.ErrCodeUnauthorized},
		{"Bearer " + expired, apperrors.ErrCodeTokenExpired},
		{"Bearer not.a.token", apperrors.ErrCodeInvalidToken},
	}
	for _, tt := range tests {
		_, appErr := Authenticate(v, tt.header)
		if appErr == nil || appErr.Code != tt.code {
			t.Errorf("%q: expected %s, got %v", tt.header, tt.code, appErr)
		}
		if appErr != nil && appErr.HTTPStatus != 401 {
			t.Errorf("%q: expected 401, got %d", tt.header, appErr.HTTPStatus)
		}
	}
}
