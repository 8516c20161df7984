// Package authz resolves user capabilities through roles and permissions.
// Checks belong in the HTTP handlers; the domain services receive an
// already-authorized actor ID and never consult this package.
package authz

import (
	"context"

	"blockhub/internal/cache"
	"blockhub/internal/repository"
)

// Capability names a single permitted action. The values match the
// permission rows seeded into the database.
type Capability string

const (
	PostView    Capability = "view posts"
	PostCreate  Capability = "create posts"
	PostEdit    Capability = "edit posts"
	PostDelete  Capability = "delete posts"
	PostPublish Capability = "publish posts"

	CategoryView   Capability = "view categories"
	CategoryCreate Capability = "create categories"
	CategoryEdit   Capability = "edit categories"
	CategoryDelete Capability = "delete categories"

	UserView   Capability = "view users"
	UserCreate Capability = "create users"
	UserEdit   Capability = "edit users"
	UserDelete Capability = "delete users"

	RoleView   Capability = "view roles"
	RoleCreate Capability = "create roles"
	RoleEdit   Capability = "edit roles"
	RoleDelete Capability = "delete roles"
)

// Checker reports whether an actor may perform a capability.
type Checker interface {
	Can(ctx context.Context, userID uint, cap Capability) (bool, error)
}

// Service is the RBAC-backed Checker. Permission sets are cached per user
// with a short TTL; role changes take effect within that window.
type Service struct {
	rbacRepo repository.RBACRepository
	// SuperRole holders bypass individual permission checks.
	superRole string
}

// NewService creates an authorization service over the RBAC repository.
func NewService(rbacRepo repository.RBACRepository) *Service {
	return &Service{rbacRepo: rbacRepo, superRole: "super admin"}
}

// Can reports whether the user holds the capability through any role.
// Holders of the super role are granted everything without consulting
// individual permissions.
func (s *Service) Can(ctx context.Context, userID uint, cap Capability) (bool, error) {
	perms, err := s.permissionSet(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, ok := perms[string(cap)]; ok {
		return true, nil
	}
	return s.rbacRepo.UserHasRole(ctx, userID, s.superRole)
}

func (s *Service) permissionSet(ctx context.Context, userID uint) (map[string]struct{}, error) {
	var names []string
	err := cache.Aside(ctx, cache.UserPermsKey(userID), &names, cache.PermsTTL, func() error {
		var fetchErr error
		names, fetchErr = s.rbacRepo.PermissionNamesForUser(ctx, userID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// InvalidateUser drops the cached permission set after a role change.
func InvalidateUser(ctx context.Context, userID uint) {
	cache.Invalidate(ctx, cache.UserPermsKey(userID))
}
