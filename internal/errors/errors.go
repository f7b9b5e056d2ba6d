// Package errors provides custom error types for the dealflow API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User and tenant errors.
var (
	ErrUserNotFound    = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail  = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrCompanyNotFound = &AppError{Code: "COMPANY_NOT_FOUND", Message: "Company not found", StatusCode: http.StatusNotFound}
)

// Pipeline stage errors.
var (
	ErrStageNotFound       = &AppError{Code: "STAGE_NOT_FOUND", Message: "Pipeline stage not found", StatusCode: http.StatusNotFound}
	ErrDuplicateStageName  = &AppError{Code: "DUPLICATE_STAGE_NAME", Message: "A stage with this name already exists", StatusCode: http.StatusConflict}
	ErrDuplicateStageOrder = &AppError{Code: "DUPLICATE_STAGE_ORDER", Message: "A stage with this order already exists", StatusCode: http.StatusConflict}
)

// Deal errors.
var (
	ErrDealNotFound = &AppError{Code: "DEAL_NOT_FOUND", Message: "Deal not found", StatusCode: http.StatusNotFound}
	ErrDealModified = &AppError{Code: "DEAL_MODIFIED", Message: "Deal was modified by another request, reload and retry", StatusCode: http.StatusConflict}
)

// Lead errors.
var (
	ErrLeadNotFound         = &AppError{Code: "LEAD_NOT_FOUND", Message: "Lead not found", StatusCode: http.StatusNotFound}
	ErrLeadAlreadyConverted = &AppError{Code: "LEAD_ALREADY_CONVERTED", Message: "Lead has already been converted", StatusCode: http.StatusConflict}
)

// Contact and account errors.
var (
	ErrContactNotFound = &AppError{Code: "CONTACT_NOT_FOUND", Message: "Contact not found", StatusCode: http.StatusNotFound}
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
)

// Activity errors.
var (
	ErrActivityNotFound = &AppError{Code: "ACTIVITY_NOT_FOUND", Message: "Activity not found", StatusCode: http.StatusNotFound}
)
