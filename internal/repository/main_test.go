package repository

import (
	"testing"
	"time"

	"blockhub/internal/cache"
	"blockhub/internal/database"
	"blockhub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database with the full schema. The
// cache client is cleared so repository caching degrades to direct reads.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Match production behavior: unique violations surface as
		// gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test Author", Email: email, Password: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug}
	require.NoError(t, db.Create(category).Error)
	return category
}

func createTestPost(t *testing.T, db *gorm.DB, user *models.User, category *models.Category, slug string, publishedAt *time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:       "Post " + slug,
		Slug:        slug,
		Excerpt:     "excerpt",
		Content:     "content",
		CategoryID:  category.ID,
		UserID:      user.ID,
		IsPublished: publishedAt != nil,
		PublishedAt: publishedAt,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func timePtr(tm time.Time) *time.Time { return &tm }
