package users

import (
	"context"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// uniqueChecks is the order duplicates are looked for
var uniqueChecks = []struct {
	field     UniqueField
	value     func(RegistrationPayload) string
	duplicate func() *apperrors.AccountsError
}{
	{FieldEmail, func(p RegistrationPayload) string { return p.Email }, apperrors.NewDuplicateEmailError},
	{FieldUsername, func(p RegistrationPayload) string { return p.Username }, apperrors.NewDuplicateUsernameError},
	{FieldPhone, func(p RegistrationPayload) string { return p.Phone }, apperrors.NewDuplicatePhoneError},
}

// UniquenessChecker rejects payloads whose email, username or phone is already taken
type UniquenessChecker struct {
	lookup FieldLookup
}

// NewUniquenessChecker creates a checker over the given lookup
func NewUniquenessChecker(lookup FieldLookup) *UniquenessChecker {
	return &UniquenessChecker{lookup: lookup}
}

// Check queries email, username, then phone and stops at the first hit.
// A store error is reported as a persistence failure.
func (c *UniquenessChecker) Check(ctx context.Context, p RegistrationPayload) error {
	for _, check := range uniqueChecks {
		exists, err := c.lookup.ExistsByField(ctx, check.field, check.value(p))
		if err != nil {
			return apperrors.NewPersistenceError(err)
		}
		if exists {
			return check.duplicate()
		}
	}
	return nil
}
