// Package validation provides struct tag validation for expflow inputs.
//
// It wraps the validator library and reports failures as structured
// application errors with per-field details:
//
//	type SubmitRequest struct {
//	    Name string `json:"name" validate:"required,min=2"`
//	}
//	err := validation.Validate(&req)
package validation
