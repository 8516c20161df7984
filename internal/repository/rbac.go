package repository

import (
	"context"
	"errors"

	"blockhub/internal/models"

	"gorm.io/gorm"
)

// RBACRepository provides access to roles, permissions, and the
// user→role→permission resolution used for capability checks.
type RBACRepository interface {
	ListRoles(ctx context.Context) ([]*models.Role, error)
	GetRoleByID(ctx context.Context, id uint) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	SetRolePermissions(ctx context.Context, role *models.Role, perms []models.Permission) error
	DeleteRole(ctx context.Context, id uint) error
	ListPermissions(ctx context.Context) ([]*models.Permission, error)
	FindOrCreatePermission(ctx context.Context, name string) (*models.Permission, error)
	FindOrCreateRole(ctx context.Context, name string) (*models.Role, error)
	AssignRole(ctx context.Context, user *models.User, role *models.Role) error
	PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error)
	UserHasRole(ctx context.Context, userID uint, roleName string) (bool, error)
}

type rbacRepository struct {
	db *gorm.DB
}

// NewRBACRepository creates a new role/permission repository
func NewRBACRepository(db *gorm.DB) RBACRepository {
	return &rbacRepository{db: db}
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]*models.Role, error) {
	var roles []*models.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("id ASC").
		Find(&roles).Error
	return roles, err
}

func (r *rbacRepository) GetRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Role", id)
		}
		return nil, err
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("name = ?", name).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Role", name)
		}
		return nil, err
	}
	return &role, nil
}

func (r *rbacRepository) CreateRole(ctx context.Context, role *models.Role) error {
	err := r.db.WithContext(ctx).Create(role).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.NewConflictError("Role name already in use: " + role.Name)
	}
	return err
}

func (r *rbacRepository) SetRolePermissions(ctx context.Context, role *models.Role, perms []models.Permission) error {
	return r.db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms)
}

func (r *rbacRepository) DeleteRole(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Role{}, id).Error
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	var perms []*models.Permission
	err := r.db.WithContext(ctx).Order("id ASC").Find(&perms).Error
	return perms, err
}

func (r *rbacRepository) FindOrCreatePermission(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	err := r.db.WithContext(ctx).
		Where(models.Permission{Name: name}).
		FirstOrCreate(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *rbacRepository) FindOrCreateRole(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Where(models.Role{Name: name}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *rbacRepository) AssignRole(ctx context.Context, user *models.User, role *models.Role) error {
	return r.db.WithContext(ctx).Model(user).Association("Roles").Append(role)
}

// UserHasRole reports whether the user holds the named role directly.
func (r *rbacRepository) UserHasRole(ctx context.Context, userID uint, roleName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, roleName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PermissionNamesForUser resolves the distinct permission names granted to a
// user through any of their roles.
func (r *rbacRepository) PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Distinct("permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
