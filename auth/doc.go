// Package auth holds the token validator interface used by the gateway's
// auth gate, bearer-token extraction, and its configuration.
//
// Subpackages:
//   - auth/jwt: JWT token service generic over the claims type
//   - auth/authctx: typed claims in a request context
//
// Wiring a validator:
//
//	svc, err := jwt.NewService(&cfg.JWT, func() *Claims { return &Claims{} })
//	validator := auth.NewValidator(svc.ValidatorFunc())
package auth
