package service

import (
	"context"
	"strings"

	"blockhub/internal/models"
	"blockhub/internal/repository"
)

// RoleService manages roles and their permission sets.
type RoleService struct {
	rbacRepo repository.RBACRepository
}

// NewRoleService creates a RoleService.
func NewRoleService(rbacRepo repository.RBACRepository) *RoleService {
	return &RoleService{rbacRepo: rbacRepo}
}

// ListRoles returns every role with its permissions.
func (s *RoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return s.rbacRepo.ListRoles(ctx)
}

// GetRole loads one role with its permissions.
func (s *RoleService) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	return s.rbacRepo.GetRoleByID(ctx, id)
}

// ListPermissions returns the full permission catalogue.
func (s *RoleService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	return s.rbacRepo.ListPermissions(ctx)
}

// CreateRole creates a role and attaches the named permissions. Unknown
// permission names are created on the fly so new capabilities can be rolled
// out ahead of the seeder.
func (s *RoleService) CreateRole(ctx context.Context, name string, permissionNames []string) (*models.Role, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewFieldValidationError(map[string]string{"name": "name is required"})
	}

	role := &models.Role{Name: name}
	if err := s.rbacRepo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	if err := s.setPermissions(ctx, role, permissionNames); err != nil {
		return nil, err
	}
	return s.rbacRepo.GetRoleByID(ctx, role.ID)
}

// SetRolePermissions replaces a role's permission set. Cached per-user
// permission sets age out within their TTL rather than being swept here.
func (s *RoleService) SetRolePermissions(ctx context.Context, roleID uint, permissionNames []string) (*models.Role, error) {
	role, err := s.rbacRepo.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.setPermissions(ctx, role, permissionNames); err != nil {
		return nil, err
	}
	return s.rbacRepo.GetRoleByID(ctx, roleID)
}

// DeleteRole removes a role.
func (s *RoleService) DeleteRole(ctx context.Context, id uint) error {
	if _, err := s.rbacRepo.GetRoleByID(ctx, id); err != nil {
		return err
	}
	return s.rbacRepo.DeleteRole(ctx, id)
}

func (s *RoleService) setPermissions(ctx context.Context, role *models.Role, names []string) error {
	perms := make([]models.Permission, 0, len(names))
	for _, name := range names {
		perm, err := s.rbacRepo.FindOrCreatePermission(ctx, name)
		if err != nil {
			return err
		}
		perms = append(perms, *perm)
	}
	return s.rbacRepo.SetRolePermissions(ctx, role, perms)
}
