package jwt

import (
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported JWT algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	ES256 SigningMethod = "ES256"
)

var methods = map[SigningMethod]gojwt.SigningMethod{
	HS256: gojwt.SigningMethodHS256,
	HS384: gojwt.SigningMethodHS384,
	HS512: gojwt.SigningMethodHS512,
	RS256: gojwt.SigningMethodRS256,
	ES256: gojwt.SigningMethodES256,
}

// Config describes the tokens user-service issues. HMAC methods share
// Secret with the issuer and can also mint tokens. RS256 and ES256 verify
// against a PEM public key and cannot sign.
type Config struct {
	Method SigningMethod `mapstructure:"method"`
	Secret string        `mapstructure:"secret"`
	// PublicKeyFile is a PEM file read when PublicKeyPEM is empty.
	PublicKeyFile string `mapstructure:"public_key_file"`
	PublicKeyPEM  string `mapstructure:"public_key_pem"`

	Issuer   string   `mapstructure:"issuer"`
	Audience []string `mapstructure:"audience"`
	// AccessTokenTTL is the lifetime GenerateAccess stamps. user-service
	// issues 2h tokens.
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	// Leeway absorbs clock skew on exp and nbf.
	Leeway time.Duration `mapstructure:"leeway"`

	Now func() time.Time `mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 2 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

func (c *Config) hmac() bool {
	return c.Method == HS256 || c.Method == HS384 || c.Method == HS512
}

// Validate checks that the method is known and has key material.
func (c *Config) Validate() error {
	if _, ok := methods[c.Method]; !ok {
		return fmt.Errorf("unsupported signing method %q", c.Method)
	}
	if c.hmac() {
		if c.Secret == "" {
			return errors.New("secret is required for HMAC signing methods")
		}
		return nil
	}
	if c.PublicKeyPEM == "" && c.PublicKeyFile == "" {
		return fmt.Errorf("public_key_pem or public_key_file is required for %s", c.Method)
	}
	return nil
}

// keys resolves the verification key and, for HMAC, the signing key.
func (c *Config) keys() (verify, sign any, err error) {
	if c.hmac() {
		k := []byte(c.Secret)
		return k, k, nil
	}
	pem := []byte(c.PublicKeyPEM)
	if len(pem) == 0 {
		if pem, err = os.ReadFile(c.PublicKeyFile); err != nil {
			return nil, nil, fmt.Errorf("read public key: %w", err)
		}
	}
	switch c.Method {
	case RS256:
		verify, err = gojwt.ParseRSAPublicKeyFromPEM(pem)
	case ES256:
		verify, err = gojwt.ParseECPublicKeyFromPEM(pem)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s public key: %w", c.Method, err)
	}
	return verify, nil, nil
}
