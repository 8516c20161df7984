// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"blockhub/internal/cache"
	"blockhub/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	FindPublishedBySlug(ctx context.Context, slug string, now time.Time) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, int64, error)
	ListPublished(ctx context.Context, categoryID uint, limit, offset int, now time.Time) ([]*models.Post, int64, error)
	ListRelated(ctx context.Context, post *models.Post, limit int, now time.Time) ([]*models.Post, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID uint) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	return translatePostError(err, post.Slug)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

// FindPublishedBySlug returns a publicly visible post. Reads go through the
// cache; mutations invalidate the slug key.
func (r *postRepository) FindPublishedBySlug(ctx context.Context, slug string, now time.Time) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostSlugKey(slug), &post, cache.PostTTL, func() error {
		return r.publishedScope(r.db.WithContext(ctx), now).
			Preload("User").
			Preload("Category").
			Where("slug = ?", slug).
			First(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", slug)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	var posts []*models.Post
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Category").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) ListPublished(ctx context.Context, categoryID uint, limit, offset int, now time.Time) ([]*models.Post, int64, error) {
	var posts []*models.Post
	var total int64

	base := r.publishedScope(r.db.WithContext(ctx).Model(&models.Post{}), now)
	if categoryID != 0 {
		base = base.Where("category_id = ?", categoryID)
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.publishedScope(r.db.WithContext(ctx), now)
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	err := query.
		Preload("User").
		Preload("Category").
		Order("published_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListRelated returns other visible posts from the same category, newest first.
func (r *postRepository) ListRelated(ctx context.Context, post *models.Post, limit int, now time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.publishedScope(r.db.WithContext(ctx), now).
		Preload("User").
		Preload("Category").
		Where("category_id = ? AND id <> ?", post.CategoryID, post.ID).
		Order("published_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ExistsBySlug(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return translatePostError(err, post.Slug)
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID), cache.PostSlugKey(post.Slug))
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	return nil
}

// publishedScope restricts a query to publicly visible posts.
func (r *postRepository) publishedScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.
		Where("is_published = ?", true).
		Where("published_at IS NOT NULL").
		Where("published_at <= ?", now)
}

// translatePostError maps a write-time unique violation on slug to a
// conflict error; the pre-check in the service is best-effort only.
func translatePostError(err error, slug string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.NewConflictError("Slug already in use: " + slug)
	}
	return err
}
