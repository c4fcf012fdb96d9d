package fee

import (
	"errors"
	"fmt"

	"github.com/feeledger/backend/internal/domain/shared"
)

// Error codes
const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeClientAdjustmentPositive = "CLIENT_ADJUSTMENT_POSITIVE"
	CodePartialPaymentExceeds    = "PARTIAL_PAYMENT_EXCEEDS_TOTAL"
	CodeInstallmentSequence      = "INSTALLMENT_SEQUENCE_INVALID"
	CodePersistence              = "PERSISTENCE_ERROR"
	CodeClassificationFailed     = "CLASSIFICATION_UNAVAILABLE"
)

// ErrClassificationUnavailable is returned by a DeviationClassifier that failed
// or produced no result. Callers treat it as non-fatal.
var ErrClassificationUnavailable = shared.NewDomainError(CodeClassificationFailed, "deviation classification unavailable")

// ValidationError rejects input before anything is written.
type ValidationError struct {
	*shared.DomainError
	Field string
}

// NewValidationError creates a validation error for a field
func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{
		DomainError: shared.NewDomainError(code, message),
		Field:       field,
	}
}

// Unwrap exposes the DomainError so errors.As finds both types
func (e *ValidationError) Unwrap() error {
	return e.DomainError
}

// PersistenceError wraps a storage failure. The engine does not retry it.
type PersistenceError struct {
	*shared.DomainError
	Op string
}

// NewPersistenceError wraps err as a persistence failure of op
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{
		DomainError: shared.WrapDomainError(CodePersistence, fmt.Sprintf("failed to %s", op), err),
		Op:          op,
	}
}

// Unwrap exposes the DomainError and through it the storage cause
func (e *PersistenceError) Unwrap() error {
	return e.DomainError
}

// ClassificationUnavailable wraps the classifier's underlying failure
func ClassificationUnavailable(cause error) error {
	if cause == nil {
		return ErrClassificationUnavailable
	}
	return shared.WrapDomainError(CodeClassificationFailed, ErrClassificationUnavailable.Message, cause)
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsPersistenceError reports whether err is a PersistenceError
func IsPersistenceError(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
