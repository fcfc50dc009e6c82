package users

import (
	"context"
	"fmt"

	apperrors "github.com/memtensor/accounts/pkg/errors"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/logger"
	"github.com/memtensor/accounts/pkg/metrics"
)

// Operation names a gated user-management action
type Operation string

const (
	OpListUsers  Operation = "list-users"
	OpUpdateUser Operation = "update-user"
	OpDeleteUser Operation = "delete-user"
	OpCreateUser Operation = "create-user"
)

// Requirement is what a caller must present for an operation.
// Roles are compared by equality: there is no ranking between them.
type Requirement struct {
	Role             Role
	AnyAuthenticated bool
}

// Satisfied reports whether role meets the requirement
func (r Requirement) Satisfied(role Role) bool {
	if r.AnyAuthenticated {
		return true
	}
	return role == r.Role
}

var operationRequirements = map[Operation]Requirement{
	OpListUsers:  {Role: RoleSuperAdmin},
	OpUpdateUser: {Role: RoleSuperAdmin},
	OpDeleteUser: {Role: RoleAdmin},
	OpCreateUser: {AnyAuthenticated: true},
}

// RequirementFor returns the requirement declared for op
func RequirementFor(op Operation) (Requirement, bool) {
	req, ok := operationRequirements[op]
	return req, ok
}

var roleDeniedMessages = map[Role]string{
	RoleSuperAdmin: "You Are Not Super Admin",
	RoleAdmin:      "You Are Not Admin",
}

// Gate authenticates a bearer credential and enforces an operation's requirement
type Gate struct {
	verifier TokenVerifier
	logger   interfaces.Logger
	metrics  interfaces.Metrics
}

// NewGate creates a gate; nil logger or metrics fall back to no-ops
func NewGate(verifier TokenVerifier, log interfaces.Logger, m interfaces.Metrics) *Gate {
	if log == nil {
		log = logger.NewTestLogger()
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	return &Gate{verifier: verifier, logger: log, metrics: m}
}

// Authorize returns the caller when token is valid and the caller's role
// satisfies op. Otherwise it returns Unauthenticated or InsufficientRole.
func (g *Gate) Authorize(ctx context.Context, token string, op Operation) (*User, error) {
	req, ok := RequirementFor(op)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no access rule for operation %s", op))
	}

	caller, err := g.verifier.VerifyToken(ctx, token)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeUnauthorized) {
			g.deny(op, apperrors.ErrCodeUnauthenticated)
			g.logger.Debug("gate: unauthenticated", map[string]interface{}{"operation": op, "reason": err.Error()})
			return nil, err
		}
		g.logger.Error("gate: token verification failed", err, map[string]interface{}{"operation": op})
		return nil, err
	}

	role := caller.EffectiveRole()
	if !req.Satisfied(role) {
		g.deny(op, apperrors.ErrCodeInsufficientRole)
		g.logger.Warn("gate: insufficient role", map[string]interface{}{
			"operation":     op,
			"caller_id":     caller.ID,
			"caller_role":   role,
			"required_role": req.Role,
		})
		return nil, apperrors.NewInsufficientRoleError(req.Role.String(), deniedMessage(req.Role))
	}

	return caller, nil
}

func (g *Gate) deny(op Operation, code apperrors.ErrorCode) {
	g.metrics.Counter("gate_denied_total", 1, map[string]string{"operation": string(op), "code": string(code)})
}

func deniedMessage(required Role) string {
	if msg, ok := roleDeniedMessages[required]; ok {
		return msg
	}
	return fmt.Sprintf("You Are Not %s", required)
}
