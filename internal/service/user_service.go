package service

import (
	"context"
	"strings"

	"blockhub/internal/authz"
	"blockhub/internal/models"
	"blockhub/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts, credentials, and role assignment.
type UserService struct {
	userRepo repository.UserRepository
	rbacRepo repository.RBACRepository
}

// NewUserService creates a UserService.
func NewUserService(userRepo repository.UserRepository, rbacRepo repository.RBACRepository) *UserService {
	return &UserService{userRepo: userRepo, rbacRepo: rbacRepo}
}

// CreateUserInput carries the fields for registering an account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
}

// CreateUser validates and registers a new account, hashing the password
// and attaching any named roles.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	if len(in.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     in.Name,
		Email:    strings.ToLower(in.Email),
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	for _, name := range in.Roles {
		role, err := s.rbacRepo.GetRoleByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := s.rbacRepo.AssignRole(ctx, user, role); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, user.ID)
}

// Authenticate checks an email/password pair and returns the account.
// Failures are deliberately indistinguishable between unknown email and
// wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// GetUser loads an account with its roles.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns a page of accounts plus the total count.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// SetUserRoles replaces the user's role set and drops their cached
// permissions so the change applies immediately.
func (s *UserService) SetUserRoles(ctx context.Context, userID uint, roleNames []string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles := make([]models.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.rbacRepo.GetRoleByName(ctx, name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := s.userRepo.SetRoles(ctx, user, roles); err != nil {
		return nil, err
	}
	authz.InvalidateUser(ctx, userID)

	return s.userRepo.GetByID(ctx, userID)
}

// DeleteUser removes an account and invalidates its cached permissions.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	authz.InvalidateUser(ctx, id)
	return nil
}
