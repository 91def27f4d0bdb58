// Package validation validates configuration structs such as route rules
// and registry settings, returning INVALID_INPUT AppErrors.
//
// Struct tags use go-playground/validator plus two custom tags, urlpath and
// httpmethod:
//
//	type Rule struct {
//	    Method  string `validate:"required,httpmethod"`
//	    Pattern string `validate:"required,urlpath"`
//	}
//	err := validation.Validate(rule)
package validation
