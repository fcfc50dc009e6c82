package users

import (
	"regexp"
	"unicode/utf8"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// MinPasswordLength is the shortest password a registration accepts
const MinPasswordLength = 6

var (
	emailPattern    = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10}$`)
)

// RegistrationPayload is the raw input of a registration. Values are checked as given.
type RegistrationPayload struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateFields runs the syntactic checks in fixed order and returns the first failure.
// It never touches the store.
func ValidateFields(p RegistrationPayload) error {
	if p.FullName == "" || p.Phone == "" || p.Email == "" || p.Username == "" || p.Password == "" {
		return apperrors.NewMissingFieldError()
	}

	if utf8.RuneCountInString(p.Password) < MinPasswordLength {
		return apperrors.NewPasswordTooShortError(MinPasswordLength)
	}

	if !ValidEmail(p.Email) {
		return apperrors.NewInvalidEmailError()
	}

	if !ValidUsername(p.Username) {
		return apperrors.NewInvalidUsernameError()
	}

	if !ValidPhone(p.Phone) {
		return apperrors.NewInvalidPhoneError()
	}

	return nil
}

// ValidEmail reports whether email has the accepted shape
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidUsername reports whether username is purely alphanumeric
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidPhone reports whether phone is exactly ten decimal digits
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
