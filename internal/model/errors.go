package model

import "errors"

// ErrValidation is matched (via errors.Is) by every ValidationError.  A
// validation failure rejects the mutating operation and leaves state
// untouched; handlers translate it into HTTP 400.
var ErrValidation = errors.New("validation failed")

// ErrIntegrity is matched by every IntegrityError.  Integrity failures mean
// the stored data or configuration is inconsistent (missing default pricing
// window, voucher balance out of bounds).  They are logged at critical
// severity and surface as HTTP 500.
var ErrIntegrity = errors.New("integrity violation")

// ValidationError describes a user-facing rejection.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IntegrityError describes a configuration or data integrity violation.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrIntegrity) match any IntegrityError.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
