package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"blockhub/internal/cache"
	"blockhub/internal/config"
	"blockhub/internal/database"
	"blockhub/internal/middleware"
	"blockhub/internal/models"
	"blockhub/internal/repository"
	"blockhub/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The Prometheus collector registers in the default registry, so the server
// under test is built once and shared across tests.
var (
	setupOnce sync.Once
	testApp   *fiber.App
	testDB    *gorm.DB
)

func setupTestServer(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	setupOnce.Do(func() {
		cache.SetClient(nil)

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err != nil {
			panic(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxOpenConns(1)
		if err := database.Migrate(db); err != nil {
			panic(err)
		}

		uploadDir, err := os.MkdirTemp("", "blockhub-uploads-*")
		if err != nil {
			panic(err)
		}

		cfg := &config.Config{
			Port:      "0",
			JWTSecret: "test-secret-which-is-long-enough-for-hmac",
			UploadDir: uploadDir,
		}
		middleware.InitMiddleware(cfg)

		srv := NewServerWithDeps(cfg, db, nil, storage.NewLocalStore(uploadDir))
		app := fiber.New()
		srv.SetupRoutes(app)

		testApp = app
		testDB = db
	})
	return testApp, testDB
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func seedAccount(t *testing.T, db *gorm.DB, email, roleName string, perms ...string) *models.User {
	t.Helper()
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: "Account", Email: email, Password: string(hashed)}
	require.NoError(t, db.Create(user).Error)

	rbacRepo := repository.NewRBACRepository(db)
	role, err := rbacRepo.FindOrCreateRole(ctx, roleName)
	require.NoError(t, err)
	permRows := make([]models.Permission, 0, len(perms))
	for _, p := range perms {
		perm, err := rbacRepo.FindOrCreatePermission(ctx, p)
		require.NoError(t, err)
		permRows = append(permRows, *perm)
	}
	if len(permRows) > 0 {
		require.NoError(t, rbacRepo.SetRolePermissions(ctx, role, permRows))
	}
	require.NoError(t, rbacRepo.AssignRole(ctx, user, role))
	return user
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", fiber.Map{
		"email":    email,
		"password": "password123",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	app, _ := setupTestServer(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, db := setupTestServer(t)
	seedAccount(t, db, "badcreds@example.com", "user", "view posts")

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", fiber.Map{
		"email":    "badcreds@example.com",
		"password": "wrong-password",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	app, db := setupTestServer(t)

	seedAccount(t, db, "chief@example.com", "super admin")
	token := login(t, app, "chief@example.com")

	category := &models.Category{Name: "HTTP Tech", Slug: "http-tech"}
	require.NoError(t, db.Create(category).Error)

	// Create a published post.
	req := jsonRequest(http.MethodPost, "/api/admin/posts", fiber.Map{
		"title":        "Lifecycle Over HTTP",
		"excerpt":      "short",
		"content":      "body",
		"category_id":  category.ID,
		"is_published": true,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Post
	decodeBody(t, resp, &created)
	assert.Equal(t, "lifecycle-over-http", created.Slug)
	require.NotNil(t, created.PublishedAt)

	// Same title again gets a suffixed slug.
	req = jsonRequest(http.MethodPost, "/api/admin/posts", fiber.Map{
		"title":        "Lifecycle Over HTTP",
		"excerpt":      "short",
		"content":      "body",
		"category_id":  category.ID,
		"is_published": true,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var second models.Post
	decodeBody(t, resp, &second)
	assert.Equal(t, "lifecycle-over-http-1", second.Slug)

	// Public blog shows the post by slug with related entries.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/blog/lifecycle-over-http", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var show struct {
		Post    models.Post   `json:"post"`
		Related []models.Post `json:"related"`
	}
	decodeBody(t, resp, &show)
	assert.Equal(t, created.ID, show.Post.ID)
	require.Len(t, show.Related, 1)
	assert.Equal(t, second.ID, show.Related[0].ID)

	// Delete the post; its slug disappears from the public surface.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/admin/posts/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/blog/lifecycle-over-http", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCapabilityGateDeniesWithoutPermission(t *testing.T) {
	app, db := setupTestServer(t)

	seedAccount(t, db, "reader@example.com", "reader-role", "view posts")
	token := login(t, app, "reader@example.com")

	req := jsonRequest(http.MethodPost, "/api/admin/posts", fiber.Map{
		"title":       "Should Not Land",
		"excerpt":     "short",
		"content":     "body",
		"category_id": 1,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Viewing is fine.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/posts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationErrorsSurfaceAs422(t *testing.T) {
	app, db := setupTestServer(t)

	seedAccount(t, db, "editor422@example.com", "super admin")
	token := login(t, app, "editor422@example.com")

	req := jsonRequest(http.MethodPost, "/api/admin/posts", fiber.Map{
		"title": "",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body models.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, models.CodeValidation, body.Code)
	assert.Contains(t, body.Fields, "excerpt")
}

func TestBlogHidesDraftsAndScheduled(t *testing.T) {
	app, db := setupTestServer(t)

	author := seedAccount(t, db, "hidden@example.com", "author-role", "view posts")
	category := &models.Category{Name: "Hidden Cat", Slug: "hidden-cat"}
	require.NoError(t, db.Create(category).Error)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)
	for _, p := range []*models.Post{
		{Title: "Vis", Slug: "vis-live", Excerpt: "e", Content: "c", CategoryID: category.ID, UserID: author.ID, IsPublished: true, PublishedAt: &past},
		{Title: "Draft", Slug: "vis-draft", Excerpt: "e", Content: "c", CategoryID: category.ID, UserID: author.ID},
		{Title: "Sched", Slug: "vis-sched", Excerpt: "e", Content: "c", CategoryID: category.ID, UserID: author.ID, IsPublished: true, PublishedAt: &future},
	} {
		require.NoError(t, db.Create(p).Error)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/blog/?category=%d", category.ID), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data  []models.Post `json:"data"`
		Total int64         `json:"total"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "vis-live", body.Data[0].Slug)
}
