package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("action forbidden")
	ErrUnauthorized       = errors.New("unauthorized")

	// User validation
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrPasswordTooWeak  = errors.New("password does not meet security requirements")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name exceeds maximum length")
	ErrInvalidRole      = errors.New("invalid user role")

	// Order validation
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderItemsRequired      = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("item quantity must be positive")
	ErrPhoneRequired           = errors.New("phone is required")
	ErrAddressRequired         = errors.New("address is required")
	ErrInvalidPaymentType      = errors.New("invalid payment type")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCustomerRequired        = errors.New("customer ID is required")

	// Menu validation
	ErrItemNotFound     = errors.New("menu item not found")
	ErrItemNameRequired = errors.New("item name is required")
	ErrInvalidPrice     = errors.New("item price must be positive")
	ErrInvalidSize      = errors.New("invalid item size")
	ErrImageRequired    = errors.New("item image is required")

	// Realtime
	ErrInvalidGroup     = errors.New("invalid group name")
	ErrConnectionClosed = errors.New("connection closed")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewMethodNotAllowedError(method string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    "Method " + method + " is not allowed on this route",
		Code:       "METHOD_NOT_ALLOWED",
		StatusCode: 405,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
