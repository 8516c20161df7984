package service

import (
	"context"
	"testing"

	"blockhub/internal/cache"
	"blockhub/internal/database"
	"blockhub/internal/models"
	"blockhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	rbacRepo := repository.NewRBACRepository(db)
	return NewUserService(userRepo, rbacRepo), db
}

func TestCreateUserHashesPasswordAndAttachesRoles(t *testing.T) {
	svc, db := setupUserService(t)
	ctx := context.Background()

	rbacRepo := repository.NewRBACRepository(db)
	_, err := rbacRepo.FindOrCreateRole(ctx, "editor")
	require.NoError(t, err)

	user, err := svc.CreateUser(ctx, CreateUserInput{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "password123",
		Roles:    []string{"editor"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "editor", user.Roles[0].Name)
}

func TestCreateUserRejectsWeakInput(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name:     "",
		Email:    "not-an-email",
		Password: "short",
	})
	assertCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
}

func TestAuthenticate(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	// Unknown email and wrong password fail identically.
	_, badEmail := svc.Authenticate(ctx, "ghost@example.com", "password123")
	_, badPass := svc.Authenticate(ctx, "ada@example.com", "wrong-password")
	assertCode(t, badEmail, models.CodeUnauthorized)
	assertCode(t, badPass, models.CodeUnauthorized)
	assert.Equal(t, badEmail.Error(), badPass.Error())
}

func TestSetUserRolesReplaces(t *testing.T) {
	svc, db := setupUserService(t)
	ctx := context.Background()

	rbacRepo := repository.NewRBACRepository(db)
	for _, name := range []string{"editor", "author"} {
		_, err := rbacRepo.FindOrCreateRole(ctx, name)
		require.NoError(t, err)
	}

	user, err := svc.CreateUser(ctx, CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "password123",
		Roles:    []string{"editor"},
	})
	require.NoError(t, err)

	updated, err := svc.SetUserRoles(ctx, user.ID, []string{"author"})
	require.NoError(t, err)
	require.Len(t, updated.Roles, 1)
	assert.Equal(t, "author", updated.Roles[0].Name)
}

func TestDeleteUserNotFound(t *testing.T) {
	svc, _ := setupUserService(t)

	err := svc.DeleteUser(context.Background(), 9999)
	assertCode(t, err, models.CodeNotFound)
}
