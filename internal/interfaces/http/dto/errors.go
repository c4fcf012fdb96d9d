package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodePersistence is used when the database rejected or lost a write
	ErrCodePersistence = "ERR_PERSISTENCE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeClientAdjustmentPositive rejects a client-requested increase
	ErrCodeClientAdjustmentPositive = "ERR_CLIENT_ADJUSTMENT_POSITIVE"
	// ErrCodePartialPaymentExceeds rejects a partial payment above the total
	ErrCodePartialPaymentExceeds = "ERR_PARTIAL_PAYMENT_EXCEEDS_TOTAL"
	// ErrCodeInstallmentSequence rejects installments not numbered 1..n
	ErrCodeInstallmentSequence = "ERR_INSTALLMENT_SEQUENCE_INVALID"
	// ErrCodeClassificationUnavailable is reported when deviation classification failed
	ErrCodeClassificationUnavailable = "ERR_CLASSIFICATION_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodePersistence: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:              http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:              http.StatusUnprocessableEntity,
	ErrCodeClientAdjustmentPositive:  http.StatusUnprocessableEntity,
	ErrCodePartialPaymentExceeds:     http.StatusUnprocessableEntity,
	ErrCodeInstallmentSequence:       http.StatusUnprocessableEntity,
	ErrCodeClassificationUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                     ErrCodeNotFound,
	"ALREADY_EXISTS":                ErrCodeAlreadyExists,
	"INVALID_INPUT":                 ErrCodeInvalidInput,
	"INVALID_STATE":                 ErrCodeInvalidState,
	"UNAUTHORIZED":                  ErrCodeUnauthorized,
	"FORBIDDEN":                     ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":          ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":              ErrCodeValidation,
	"BAD_REQUEST":                   ErrCodeBadRequest,
	"INTERNAL_ERROR":                ErrCodeInternal,
	"PERSISTENCE_ERROR":             ErrCodePersistence,
	"CLIENT_ADJUSTMENT_POSITIVE":    ErrCodeClientAdjustmentPositive,
	"PARTIAL_PAYMENT_EXCEEDS_TOTAL": ErrCodePartialPaymentExceeds,
	"INSTALLMENT_SEQUENCE_INVALID":  ErrCodeInstallmentSequence,
	"CLASSIFICATION_UNAVAILABLE":    ErrCodeClassificationUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
