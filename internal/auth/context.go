package auth

import (
	"context"

	"github.com/mjimenez-dev/casita/internal/model"
)

type contextKey struct{}

// AuthContext carries the authenticated caller through the request context.
type AuthContext struct {
	UserID   int64
	Username string
	Role     string
	FamilyID *int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func Role(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Role
}

func IsSuperadmin(ctx context.Context) bool {
	return Role(ctx) == model.RoleSuperadmin
}

// IsAdmin reports whether the caller holds any administrative role.
func IsAdmin(ctx context.Context) bool {
	r := Role(ctx)
	return r == model.RoleAdmin || r == model.RoleSuperadmin
}
