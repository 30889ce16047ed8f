package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the operator lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Pipeline error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the
	// record's or run's current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeRunInProgress is used when a source already has an active run
	ErrCodeRunInProgress = "ERR_RUN_IN_PROGRESS"
	// ErrCodeUnresolved is used when a name matches no known entity
	ErrCodeUnresolved = "ERR_UNRESOLVED"
	// ErrCodeAmbiguousMatch is used when a name matches several entities
	ErrCodeAmbiguousMatch = "ERR_AMBIGUOUS_MATCH"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Pipeline errors -> 422 Unprocessable Entity unless the caller can
	// simply retry later
	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:   http.StatusUnprocessableEntity,
	ErrCodeRunInProgress:  http.StatusConflict,
	ErrCodeUnresolved:     http.StatusUnprocessableEntity,
	ErrCodeAmbiguousMatch: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized
// transport codes. Domain code families not listed here fall through to
// the prefix rules in NormalizeErrorCode.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"CODE_EXISTS":    ErrCodeAlreadyExists,

	"UNAUTHORIZED":  ErrCodeUnauthorized,
	"FORBIDDEN":     ErrCodeForbidden,
	"TOKEN_EXPIRED": ErrCodeTokenExpired,
	"TOKEN_INVALID": ErrCodeTokenInvalid,

	// Ingestion runs
	"RUN_IN_PROGRESS":        ErrCodeRunInProgress,
	"ILLEGAL_RUN_TRANSITION": ErrCodeInvalidState,

	// Record lifecycle and review
	"ILLEGAL_RECORD_TRANSITION": ErrCodeInvalidState,
	"RECORD_NOT_IN_REVIEW":      ErrCodeInvalidState,
	"RECORD_IDENTITY_MISMATCH":  ErrCodeBusinessRule,
	"UNKNOWN_CANDIDATE":         ErrCodeInvalidInput,
	"MISSING_OPERATOR":          ErrCodeValidationRequired,
	"INVALID_REVIEW_ACTION":     ErrCodeInvalidInput,
	"ACCOUNT_ALREADY_RESOLVES":  ErrCodeConflict,

	// Entity resolution
	"UNRESOLVED":      ErrCodeUnresolved,
	"AMBIGUOUS_MATCH": ErrCodeAmbiguousMatch,

	// Canonical store invariants
	"INVARIANT_VIOLATION": ErrCodeBusinessRule,
	"STATUS_REGRESSION":   ErrCodeBusinessRule,
	"REVISION_MISMATCH":   ErrCodeConflict,
	"AMOUNT_MISMATCH":     ErrCodeBusinessRule,
	"DUPLICATE_LINE":      ErrCodeBusinessRule,
	"DUPLICATE_PAYMENT":   ErrCodeBusinessRule,
	"DUPLICATE_PRODUCT":   ErrCodeBusinessRule,
	"ALREADY_VOID":        ErrCodeInvalidState,

	"VALIDATION_ERRORS": ErrCodeValidation,
	"BAD_REQUEST":       ErrCodeBadRequest,
	"INTERNAL_ERROR":    ErrCodeInternal,
	"DB_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized
// transport format. INVALID_* codes are field validation failures and
// map to ErrCodeValidation; unknown codes pass through as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeValidation
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return ErrCodeNotFound
	}
	return code
}
