// Package errors defines the error kinds the gateway surfaces: validation,
// authentication, lookup, availability and relayed downstream failures.
// Each AppError carries a code, an HTTP status and a JSON envelope.
package errors
