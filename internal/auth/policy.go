package auth

import (
	"context"

	"github.com/mjimenez-dev/casita/internal/model"
)

// Authorization policy evaluated once per target entity instead of being
// re-derived inline in every handler. The rules:
//
//	superadmin  acts on anything
//	admin       acts on entities within their own family
//	user        acts on their own data only
//
// Family-scoped entities with a nil family are global (legacy) and visible
// to every family, but only superadmins may mutate them.

// CanActOnUser reports whether the caller may mutate the target user's data.
func CanActOnUser(ctx context.Context, target *model.User) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	switch ac.Role {
	case model.RoleSuperadmin:
		return true
	case model.RoleAdmin:
		return sameFamily(ac.FamilyID, target.FamilyID)
	default:
		return ac.UserID == target.ID
	}
}

// CanManageFamilyEntity reports whether the caller may mutate an entity
// owned by the given family (task, reward, or an assignment's task).
func CanManageFamilyEntity(ctx context.Context, familyID *int64) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	switch ac.Role {
	case model.RoleSuperadmin:
		return true
	case model.RoleAdmin:
		return familyID != nil && sameFamily(ac.FamilyID, familyID)
	default:
		return false
	}
}

// CanViewFamilyEntity reports whether the caller may read an entity owned
// by the given family. Global entities (nil family) are readable by anyone
// authenticated.
func CanViewFamilyEntity(ctx context.Context, familyID *int64) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	if ac.Role == model.RoleSuperadmin || familyID == nil {
		return true
	}
	return sameFamily(ac.FamilyID, familyID)
}

// OwnsAssignment reports whether the caller is the assignment's user.
func OwnsAssignment(ctx context.Context, a *model.TaskAssignment) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.UserID == a.UserID
}

func sameFamily(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
