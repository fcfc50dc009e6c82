package users

import (
	"context"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

// EnsureSuperAdmin makes sure a super_admin exists.
// When none does, the account named by payload.Username is promoted; if that
// account is absent it is first created through the regular registration
// pipeline. Returns the promoted user, or nil when a super_admin was already present.
func (m *Manager) EnsureSuperAdmin(ctx context.Context, payload RegistrationPayload) (*User, error) {
	count, err := m.store.CountByRole(ctx, RoleSuperAdmin)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if count > 0 {
		m.logger.Debug("Super admin already present, skipping bootstrap", map[string]interface{}{"count": count})
		return nil, nil
	}

	user, err := m.store.GetUserByName(ctx, payload.Username)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if user == nil {
		user, err = m.registrar.Register(ctx, payload, "")
		if err != nil {
			return nil, err
		}
	} else {
		m.logger.Info("Bootstrap account exists, promoting it", map[string]interface{}{
			"user_id": user.ID,
			"role":    string(user.Role),
		})
	}

	promoted, err := m.store.PatchUser(ctx, user.ID, map[string]interface{}{"role": string(RoleSuperAdmin)})
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if promoted == nil {
		return nil, apperrors.NewInternalError("bootstrap user vanished before promotion")
	}

	m.logger.Info("Bootstrapped super admin", map[string]interface{}{
		"user_id":  promoted.ID,
		"username": promoted.Username,
	})
	return promoted, nil
}
