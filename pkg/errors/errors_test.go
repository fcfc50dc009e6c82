package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsError(t *testing.T) {
	t.Run("NewAccountsError", func(t *testing.T) {
		err := NewAccountsError(ErrorTypeValidation, ErrCodeInvalidInput, "test error")

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, ErrCodeInvalidInput, err.Code)
		assert.Equal(t, "test error", err.Message)
		assert.Nil(t, err.Cause)
		assert.Empty(t, err.Details)
	})

	t.Run("Error", func(t *testing.T) {
		err := NewAccountsError(ErrorTypeValidation, ErrCodeInvalidInput, "test error")
		assert.Equal(t, "[INVALID_INPUT] validation: test error", err.Error())

		cause := errors.New("underlying error")
		errWithCause := NewAccountsErrorWithCause(ErrorTypeInternal, ErrCodeInternal, "wrapped error", cause)
		assert.Equal(t, "[INTERNAL_ERROR] internal: wrapped error (caused by: underlying error)", errWithCause.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := NewAccountsErrorWithCause(ErrorTypeInternal, ErrCodeInternal, "wrapped error", cause)
		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))

		assert.Nil(t, NewMissingFieldError().Unwrap())
	})

	t.Run("WithDetail", func(t *testing.T) {
		err := NewInvalidInputError("bad")

		result := err.WithDetail("field", "username")
		assert.Same(t, err, result)
		assert.Equal(t, "username", err.Details["field"])
	})
}

func TestRegistrationErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     *AccountsError
		errType ErrorType
		code    ErrorCode
		message string
	}{
		{"missing field", NewMissingFieldError(), ErrorTypeValidation, ErrCodeMissingField, "All fields are required"},
		{"short password", NewPasswordTooShortError(6), ErrorTypeValidation, ErrCodePasswordTooShort, "Password must be at least 6 characters long"},
		{"email", NewInvalidEmailError(), ErrorTypeValidation, ErrCodeInvalidEmail, "Email is not valid"},
		{"username", NewInvalidUsernameError(), ErrorTypeValidation, ErrCodeInvalidUsername, "Username is not valid"},
		{"phone", NewInvalidPhoneError(), ErrorTypeValidation, ErrCodeInvalidPhone, "Phone is not valid"},
		{"dup email", NewDuplicateEmailError(), ErrorTypeDuplicate, ErrCodeDuplicateEmail, "Email already exists"},
		{"dup username", NewDuplicateUsernameError(), ErrorTypeDuplicate, ErrCodeDuplicateUsername, "Username is already taken"},
		{"dup phone", NewDuplicatePhoneError(), ErrorTypeDuplicate, ErrCodeDuplicatePhone, "Phone is already exists"},
		{"unauthenticated", NewUnauthenticatedError(), ErrorTypeUnauthorized, ErrCodeUnauthenticated, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.message, tt.err.Message)
		})
	}
}

func TestNewPersistenceError(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.email")
	err := NewPersistenceError(cause)

	assert.Equal(t, ErrorTypePersistence, err.Type)
	assert.Equal(t, ErrCodePersistence, err.Code)
	assert.Equal(t, "UNIQUE constraint failed: users.email", err.Message)
	assert.Same(t, cause, err.Cause)
}

func TestNewInsufficientRoleError(t *testing.T) {
	err := NewInsufficientRoleError("super_admin", "You Are Not Super Admin")
	assert.Equal(t, ErrCodeInsufficientRole, err.Code)
	assert.Equal(t, "super_admin", err.Details["required_role"])
}

func TestGetAccountsError(t *testing.T) {
	base := NewDuplicateEmailError()
	wrapped := fmt.Errorf("register: %w", base)

	got := GetAccountsError(wrapped)
	require.NotNil(t, got)
	assert.Same(t, base, got)
	assert.True(t, IsAccountsError(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeDuplicateEmail))
	assert.True(t, IsType(wrapped, ErrorTypeDuplicate))
	assert.False(t, IsCode(wrapped, ErrCodeDuplicatePhone))

	plain := errors.New("plain")
	assert.Nil(t, GetAccountsError(plain))
	assert.False(t, IsAccountsError(plain))
	assert.False(t, IsCode(plain, ErrCodeInternal))
}
