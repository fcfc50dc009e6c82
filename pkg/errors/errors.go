// Package errors provides structured error handling for the accounts service
package errors

import (
	"errors"
	"fmt"
)

// ErrorType groups error codes by how callers should react to them
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDuplicate    ErrorType = "duplicate"
	ErrorTypePersistence  ErrorType = "persistence"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeRateLimited  ErrorType = "rate_limited"
	ErrorTypeInternal     ErrorType = "internal"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodePasswordTooShort ErrorCode = "PASSWORD_TOO_SHORT"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidUsername  ErrorCode = "INVALID_USERNAME"
	ErrCodeInvalidPhone     ErrorCode = "INVALID_PHONE"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"

	// Duplicate errors
	ErrCodeDuplicateEmail    ErrorCode = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername ErrorCode = "DUPLICATE_USERNAME"
	ErrCodeDuplicatePhone    ErrorCode = "DUPLICATE_PHONE"

	// Authentication/Authorization errors
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInsufficientRole   ErrorCode = "INSUFFICIENT_ROLE"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// System errors
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
	ErrCodeConfig      ErrorCode = "CONFIG_ERROR"
)

// AccountsError represents a structured error in the accounts service
type AccountsError struct {
	Type    ErrorType              `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AccountsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AccountsError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AccountsError) WithDetail(key string, value interface{}) *AccountsError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAccountsError creates a new error
func NewAccountsError(errType ErrorType, code ErrorCode, message string) *AccountsError {
	return &AccountsError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewAccountsErrorWithCause creates a new error with a cause
func NewAccountsErrorWithCause(errType ErrorType, code ErrorCode, message string, cause error) *AccountsError {
	return &AccountsError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors
func NewMissingFieldError() *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeMissingField, "All fields are required")
}

func NewPasswordTooShortError(min int) *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodePasswordTooShort,
		fmt.Sprintf("Password must be at least %d characters long", min)).WithDetail("min_length", min)
}

func NewInvalidEmailError() *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeInvalidEmail, "Email is not valid")
}

func NewInvalidUsernameError() *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeInvalidUsername, "Username is not valid")
}

func NewInvalidPhoneError() *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeInvalidPhone, "Phone is not valid")
}

func NewInvalidRoleError(role string) *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeInvalidRole,
		fmt.Sprintf("Role is not valid: %s", role)).WithDetail("role", role)
}

func NewInvalidInputError(message string) *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeInvalidInput, message)
}

// Duplicate error constructors
func NewDuplicateEmailError() *AccountsError {
	return NewAccountsError(ErrorTypeDuplicate, ErrCodeDuplicateEmail, "Email already exists")
}

func NewDuplicateUsernameError() *AccountsError {
	return NewAccountsError(ErrorTypeDuplicate, ErrCodeDuplicateUsername, "Username is already taken")
}

func NewDuplicatePhoneError() *AccountsError {
	return NewAccountsError(ErrorTypeDuplicate, ErrCodeDuplicatePhone, "Phone is already exists")
}

// Authentication/Authorization error constructors
func NewUnauthenticatedError() *AccountsError {
	return NewAccountsError(ErrorTypeUnauthorized, ErrCodeUnauthenticated, "Unauthorized")
}

func NewUnauthenticatedErrorWithCause(cause error) *AccountsError {
	return NewAccountsErrorWithCause(ErrorTypeUnauthorized, ErrCodeUnauthenticated, "Unauthorized", cause)
}

// NewInsufficientRoleError names the role the caller would have needed.
func NewInsufficientRoleError(required, message string) *AccountsError {
	return NewAccountsError(ErrorTypeUnauthorized, ErrCodeInsufficientRole, message).
		WithDetail("required_role", required)
}

func NewInvalidCredentialsError() *AccountsError {
	return NewAccountsError(ErrorTypeUnauthorized, ErrCodeInvalidCredentials, "invalid username or password")
}

// NewPersistenceError keeps the store's own message as the user-facing message.
func NewPersistenceError(cause error) *AccountsError {
	return NewAccountsErrorWithCause(ErrorTypePersistence, ErrCodePersistence, cause.Error(), cause)
}

func NewRateLimitedError() *AccountsError {
	return NewAccountsError(ErrorTypeRateLimited, ErrCodeRateLimited, "Too many requests, try again later")
}

func NewInternalError(message string) *AccountsError {
	return NewAccountsError(ErrorTypeInternal, ErrCodeInternal, message)
}

func NewInternalErrorWithCause(message string, cause error) *AccountsError {
	return NewAccountsErrorWithCause(ErrorTypeInternal, ErrCodeInternal, message, cause)
}

func NewConfigError(message string) *AccountsError {
	return NewAccountsError(ErrorTypeValidation, ErrCodeConfig, message)
}

// IsAccountsError checks if an error chain contains an AccountsError
func IsAccountsError(err error) bool {
	return GetAccountsError(err) != nil
}

// GetAccountsError extracts an AccountsError from an error chain
func GetAccountsError(err error) *AccountsError {
	var target *AccountsError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	if e := GetAccountsError(err); e != nil {
		return e.Code == code
	}
	return false
}

// IsType reports whether err carries the given type
func IsType(err error, errType ErrorType) bool {
	if e := GetAccountsError(err); e != nil {
		return e.Type == errType
	}
	return false
}
