// Package service implements the application's domain operations on top of
// the repositories and the file store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"blockhub/internal/cache"
	"blockhub/internal/models"
	"blockhub/internal/observability"
	"blockhub/internal/repository"
	"blockhub/internal/slug"
	"blockhub/internal/storage"
	"blockhub/internal/validation"
)

// relatedPostsLimit caps the "related posts" block on the public post page.
const relatedPostsLimit = 3

// PostService drives the post lifecycle: slug generation and uniqueness,
// publish-state derivation, featured-image handling, and persistence.
type PostService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	files        storage.FileStore
	logger       *slog.Logger
	now          func() time.Time
}

// CreatePostInput carries the fields for creating a post. AuthorID is the
// already-authenticated acting user; it is set once and never changes.
type CreatePostInput struct {
	AuthorID    uint
	Title       string
	Excerpt     string
	Content     string
	CategoryID  uint
	IsPublished bool
	PublishedAt *time.Time
	Image       *storage.Upload
}

// UpdatePostInput carries the fields for updating a post. A nil Image keeps
// the stored featured image untouched.
type UpdatePostInput struct {
	PostID      uint
	Title       string
	Excerpt     string
	Content     string
	CategoryID  uint
	IsPublished bool
	PublishedAt *time.Time
	Image       *storage.Upload
}

// NewPostService creates a PostService over the given collaborators.
func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	files storage.FileStore,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		files:        files,
		logger:       observability.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock; used by tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// CreatePost validates the input, derives a unique slug from the title,
// stores an uploaded featured image if present, derives the publish state,
// and persists the new post.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost")
	defer span.End()

	if errs := validation.ValidatePost(validation.PostInput{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		CategoryID: in.CategoryID,
	}); errs != nil {
		return nil, models.NewFieldValidationError(errs)
	}

	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	uniqueSlug, err := s.resolveSlug(ctx, in.Title, 0)
	if err != nil {
		return nil, err
	}

	imageRef, err := s.applyImage(ctx, "", in.Image)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:         in.Title,
		Slug:          uniqueSlug,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		FeaturedImage: imageRef,
		CategoryID:    in.CategoryID,
		UserID:        in.AuthorID,
		IsPublished:   in.IsPublished,
		PublishedAt:   s.derivePublishedAt(in.IsPublished, in.PublishedAt, nil),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		// The row never landed; don't leave the freshly stored image behind.
		if imageRef != "" {
			s.deleteImageBestEffort(ctx, imageRef)
		}
		observability.PostOperations.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	observability.PostOperations.WithLabelValues("create", "success").Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost re-runs the create pipeline against an existing row. The slug is
// only re-resolved when the title changed, and an already-stamped publish
// time is never moved.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	if errs := validation.ValidatePost(validation.PostInput{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		CategoryID: in.CategoryID,
	}); errs != nil {
		return nil, models.NewFieldValidationError(errs)
	}

	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	previousSlug := post.Slug
	if in.Title != post.Title {
		post.Slug, err = s.resolveSlug(ctx, in.Title, post.ID)
		if err != nil {
			return nil, err
		}
	}

	post.FeaturedImage, err = s.applyImage(ctx, post.FeaturedImage, in.Image)
	if err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Excerpt = in.Excerpt
	post.Content = in.Content
	post.CategoryID = in.CategoryID
	post.PublishedAt = s.derivePublishedAt(in.IsPublished, in.PublishedAt, post.PublishedAt)
	post.IsPublished = in.IsPublished

	if err := s.postRepo.Update(ctx, post); err != nil {
		observability.PostOperations.WithLabelValues("update", "error").Inc()
		return nil, err
	}
	if post.Slug != previousSlug {
		cache.Invalidate(ctx, cache.PostSlugKey(previousSlug))
	}
	observability.PostOperations.WithLabelValues("update", "success").Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes the post row, then best-effort deletes its stored
// featured image. A failed file delete is logged and swallowed: data-store
// consistency wins over storage cleanup.
func (s *PostService) DeletePost(ctx context.Context, postID uint) error {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		observability.PostOperations.WithLabelValues("delete", "error").Inc()
		return err
	}
	cache.Invalidate(ctx, cache.PostSlugKey(post.Slug))

	if post.FeaturedImage != "" {
		s.deleteImageBestEffort(ctx, post.FeaturedImage)
	}
	observability.PostOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

// GetPost loads a single post with its author and category.
func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// ListPosts returns the admin index: every post, newest first.
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	return s.postRepo.List(ctx, limit, offset)
}

// ListPublished returns publicly visible posts, optionally filtered by
// category, newest publication first.
func (s *PostService) ListPublished(ctx context.Context, categoryID uint, limit, offset int) ([]*models.Post, int64, error) {
	return s.postRepo.ListPublished(ctx, categoryID, limit, offset, s.now())
}

// GetPublishedBySlug loads a visible post by slug together with up to three
// related posts from the same category.
func (s *PostService) GetPublishedBySlug(ctx context.Context, postSlug string) (*models.Post, []*models.Post, error) {
	now := s.now()
	post, err := s.postRepo.FindPublishedBySlug(ctx, postSlug, now)
	if err != nil {
		return nil, nil, err
	}
	related, err := s.postRepo.ListRelated(ctx, post, relatedPostsLimit, now)
	if err != nil {
		return nil, nil, err
	}
	return post, related, nil
}

func (s *PostService) checkCategory(ctx context.Context, categoryID uint) error {
	ok, err := s.categoryRepo.ExistsByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewReferenceError("category_id", categoryID)
	}
	return nil
}

// resolveSlug turns a title into a unique slug, suffixing -1, -2, ... on
// collision. excludeID ignores the post's own row during updates.
func (s *PostService) resolveSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := slug.Generate(title)
	if base == "" {
		return "", models.NewFieldValidationError(map[string]string{
			"title": "title must contain at least one alphanumeric character",
		})
	}
	unique, err := slug.ResolveUnique(ctx, base, s.postRepo.ExistsBySlug, excludeID)
	if err != nil {
		if errors.Is(err, slug.ErrAttemptsExhausted) {
			return "", models.NewConflictError("Could not find a unique slug for: " + base)
		}
		return "", err
	}
	return unique, nil
}

// derivePublishedAt computes the effective publish timestamp.
//
// A first publish stamps the current time; a post that is already published
// keeps its original timestamp even when other fields change. Unpublished
// posts carry the requested time, if any, as a scheduled date. Scheduled
// posts never self-activate; publishing is always an explicit update.
func (s *PostService) derivePublishedAt(isPublished bool, requested, previous *time.Time) *time.Time {
	if isPublished {
		if previous != nil {
			return previous
		}
		now := s.now()
		return &now
	}
	if requested != nil {
		return requested
	}
	return nil
}

// applyImage stores a new upload and retires the previous file. The previous
// file is only deleted after the replacement is safely stored, so a failed
// save never loses the existing image.
func (s *PostService) applyImage(ctx context.Context, previous string, up *storage.Upload) (string, error) {
	if up == nil {
		return previous, nil
	}

	ref, err := s.files.Save(ctx, up)
	if err != nil {
		return "", models.NewStorageError(err)
	}
	if previous != "" {
		s.deleteImageBestEffort(ctx, previous)
	}
	return ref, nil
}

func (s *PostService) deleteImageBestEffort(ctx context.Context, ref string) {
	if err := s.files.Delete(ctx, ref); err != nil {
		observability.OrphanedImageFiles.Inc()
		s.logger.WarnContext(ctx, "failed to delete stored image, file orphaned",
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
	}
}
