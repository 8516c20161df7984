package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"blockhub/internal/models"
	"blockhub/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	stored *models.Post

	createFn              func(context.Context, *models.Post) error
	getByIDFn             func(context.Context, uint) (*models.Post, error)
	findPublishedBySlugFn func(context.Context, string, time.Time) (*models.Post, error)
	listFn                func(context.Context, int, int) ([]*models.Post, int64, error)
	listPublishedFn       func(context.Context, uint, int, int, time.Time) ([]*models.Post, int64, error)
	listRelatedFn         func(context.Context, *models.Post, int, time.Time) ([]*models.Post, error)
	existsBySlugFn        func(context.Context, string, uint) (bool, error)
	updateFn              func(context.Context, *models.Post) error
	deleteFn              func(context.Context, uint) error

	createCalls []string
	deleteCalls []uint
	updateCalls int
	existsCalls int
}

func newPostRepoStub() *postRepoStub {
	s := &postRepoStub{}
	s.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 1
		s.stored = p
		return nil
	}
	s.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if s.stored != nil && s.stored.ID == id {
			return s.stored, nil
		}
		return nil, models.NewNotFoundError("Post", id)
	}
	s.existsBySlugFn = func(context.Context, string, uint) (bool, error) { return false, nil }
	s.updateFn = func(_ context.Context, p *models.Post) error {
		s.stored = p
		return nil
	}
	s.deleteFn = func(context.Context, uint) error { return nil }
	return s
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	s.createCalls = append(s.createCalls, post.Slug)
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) FindPublishedBySlug(ctx context.Context, slug string, now time.Time) (*models.Post, error) {
	return s.findPublishedBySlugFn(ctx, slug, now)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListPublished(ctx context.Context, categoryID uint, limit, offset int, now time.Time) ([]*models.Post, int64, error) {
	return s.listPublishedFn(ctx, categoryID, limit, offset, now)
}
func (s *postRepoStub) ListRelated(ctx context.Context, post *models.Post, limit int, now time.Time) ([]*models.Post, error) {
	return s.listRelatedFn(ctx, post, limit, now)
}
func (s *postRepoStub) ExistsBySlug(ctx context.Context, slug string, excludeID uint) (bool, error) {
	s.existsCalls++
	return s.existsBySlugFn(ctx, slug, excludeID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	s.updateCalls++
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	s.deleteCalls = append(s.deleteCalls, id)
	return s.deleteFn(ctx, id)
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	existsByIDFn func(context.Context, uint) (bool, error)
}

func newCategoryRepoStub() *categoryRepoStub {
	return &categoryRepoStub{
		existsByIDFn: func(context.Context, uint) (bool, error) { return true, nil },
	}
}

func (s *categoryRepoStub) Create(context.Context, *models.Category) error { return nil }
func (s *categoryRepoStub) GetByID(context.Context, uint) (*models.Category, error) {
	return nil, nil
}
func (s *categoryRepoStub) List(context.Context) ([]*models.Category, error) { return nil, nil }
func (s *categoryRepoStub) ExistsByID(ctx context.Context, id uint) (bool, error) {
	return s.existsByIDFn(ctx, id)
}
func (s *categoryRepoStub) Update(context.Context, *models.Category) error { return nil }
func (s *categoryRepoStub) Delete(context.Context, uint) error             { return nil }

// fileStoreStub records save/delete operations in call order.
type fileStoreStub struct {
	ops      []string
	saveFn   func(context.Context, *storage.Upload) (string, error)
	deleteFn func(context.Context, string) error
}

func newFileStoreStub() *fileStoreStub {
	s := &fileStoreStub{}
	s.saveFn = func(_ context.Context, up *storage.Upload) (string, error) {
		return "posts/" + up.Filename, nil
	}
	s.deleteFn = func(context.Context, string) error { return nil }
	return s
}

func (s *fileStoreStub) Save(ctx context.Context, up *storage.Upload) (string, error) {
	ref, err := s.saveFn(ctx, up)
	if err != nil {
		s.ops = append(s.ops, "save-failed:"+up.Filename)
		return "", err
	}
	s.ops = append(s.ops, "save:"+ref)
	return ref, nil
}
func (s *fileStoreStub) Delete(ctx context.Context, ref string) error {
	s.ops = append(s.ops, "delete:"+ref)
	return s.deleteFn(ctx, ref)
}

func newTestService(posts *postRepoStub, categories *categoryRepoStub, files *fileStoreStub) *PostService {
	return NewPostService(posts, categories, files).
		WithClock(func() time.Time { return fixedNow })
}

func validCreateInput() CreatePostInput {
	return CreatePostInput{
		AuthorID:   7,
		Title:      "My First Post",
		Excerpt:    "A short excerpt",
		Content:    "The full body",
		CategoryID: 3,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestCreatePostGeneratesSlug(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	post, err := svc.CreatePost(context.Background(), validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "my-first-post", post.Slug)
	assert.Equal(t, uint(7), post.UserID)
	assert.False(t, post.IsPublished)
	assert.Nil(t, post.PublishedAt)
}

func TestCreatePostPublishStampsCurrentTime(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validCreateInput()
	in.IsPublished = true
	// Any requested time is ignored on a fresh publish; the stamp is "now".
	requested := fixedNow.Add(-72 * time.Hour)
	in.PublishedAt = &requested

	post, err := svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, post.IsPublished)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(fixedNow))
}

func TestCreatePostScheduledKeepsRequestedTime(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validCreateInput()
	future := fixedNow.Add(48 * time.Hour)
	in.PublishedAt = &future

	post, err := svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, post.IsPublished)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(future))
}

func TestCreatePostValidationFailure(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	_, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 7})
	assertCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "category_id")
	assert.Empty(t, posts.createCalls, "nothing may be persisted on validation failure")
}

func TestCreatePostUnknownCategory(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	categories := newCategoryRepoStub()
	categories.existsByIDFn = func(context.Context, uint) (bool, error) { return false, nil }
	svc := newTestService(posts, categories, newFileStoreStub())

	_, err := svc.CreatePost(context.Background(), validCreateInput())
	assertCode(t, err, models.CodeReference)
	assert.Empty(t, posts.createCalls)
}

func TestCreatePostSymbolOnlyTitle(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validCreateInput()
	in.Title = "!!! ??? !!!"

	_, err := svc.CreatePost(context.Background(), in)
	assertCode(t, err, models.CodeValidation)
	assert.Empty(t, posts.createCalls)
}

func TestCreatePostSlugCollisionGetsSuffix(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	taken := map[string]bool{"my-first-post": true, "my-first-post-1": true}
	posts.existsBySlugFn = func(_ context.Context, slug string, _ uint) (bool, error) {
		return taken[slug], nil
	}
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	post, err := svc.CreatePost(context.Background(), validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "my-first-post-2", post.Slug)
}

func TestCreatePostSlugNamespaceExhausted(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.existsBySlugFn = func(context.Context, string, uint) (bool, error) { return true, nil }
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	_, err := svc.CreatePost(context.Background(), validCreateInput())
	assertCode(t, err, models.CodeConflict)
}

func TestCreatePostStoresImage(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	files := newFileStoreStub()
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validCreateInput()
	in.Image = &storage.Upload{Filename: "cover.png", Content: []byte("png")}

	post, err := svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "posts/cover.png", post.FeaturedImage)
	assert.Equal(t, []string{"save:posts/cover.png"}, files.ops)
}

func TestCreatePostImageSaveFailure(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	files := newFileStoreStub()
	files.saveFn = func(context.Context, *storage.Upload) (string, error) {
		return "", errors.New("disk full")
	}
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validCreateInput()
	in.Image = &storage.Upload{Filename: "cover.png", Content: []byte("png")}

	_, err := svc.CreatePost(context.Background(), in)
	assertCode(t, err, models.CodeStorage)
	assert.Empty(t, posts.createCalls, "no row may land without its image")
}

func TestCreatePostRowFailureCleansUpImage(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.createFn = func(context.Context, *models.Post) error {
		return errors.New("insert failed")
	}
	files := newFileStoreStub()
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validCreateInput()
	in.Image = &storage.Upload{Filename: "cover.png", Content: []byte("png")}

	_, err := svc.CreatePost(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, []string{"save:posts/cover.png", "delete:posts/cover.png"}, files.ops)
}

func existingPost() *models.Post {
	return &models.Post{
		ID:         1,
		Title:      "My First Post",
		Slug:       "my-first-post",
		Excerpt:    "A short excerpt",
		Content:    "The full body",
		CategoryID: 3,
		UserID:     7,
	}
}

func validUpdateInput() UpdatePostInput {
	return UpdatePostInput{
		PostID:     1,
		Title:      "My First Post",
		Excerpt:    "A short excerpt",
		Content:    "The full body",
		CategoryID: 3,
	}
}

func TestUpdatePostKeepsSlugWhenTitleUnchanged(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.stored = existingPost()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validUpdateInput()
	in.Content = "Rewritten body"

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "my-first-post", post.Slug)
	assert.Equal(t, "Rewritten body", post.Content)
	assert.Zero(t, posts.existsCalls, "no uniqueness probe when the title is unchanged")
}

func TestUpdatePostRenamesSlugExcludingSelf(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.stored = existingPost()
	var gotExclude uint
	posts.existsBySlugFn = func(_ context.Context, _ string, excludeID uint) (bool, error) {
		gotExclude = excludeID
		return false, nil
	}
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validUpdateInput()
	in.Title = "A Better Title"

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "a-better-title", post.Slug)
	assert.Equal(t, uint(1), gotExclude)
}

func TestUpdatePostPublishedTimestampNeverMoves(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	first := fixedNow.Add(-30 * 24 * time.Hour)
	p := existingPost()
	p.IsPublished = true
	p.PublishedAt = &first
	posts.stored = p
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validUpdateInput()
	in.IsPublished = true
	requested := fixedNow.Add(time.Hour)
	in.PublishedAt = &requested

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(first), "original publication time must survive edits")
}

func TestUpdatePostFirstPublishStampsNow(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.stored = existingPost()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validUpdateInput()
	in.IsPublished = true

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, post.IsPublished)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(fixedNow))
}

func TestUpdatePostUnpublishClearsTimestamp(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	first := fixedNow.Add(-24 * time.Hour)
	p := existingPost()
	p.IsPublished = true
	p.PublishedAt = &first
	posts.stored = p
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	in := validUpdateInput()

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, post.IsPublished)
	assert.Nil(t, post.PublishedAt)
}

func TestUpdatePostReplacesImageSaveBeforeDelete(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/old.png"
	posts.stored = p
	files := newFileStoreStub()
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validUpdateInput()
	in.Image = &storage.Upload{Filename: "new.png", Content: []byte("png")}

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "posts/new.png", post.FeaturedImage)
	assert.Equal(t, []string{"save:posts/new.png", "delete:posts/old.png"}, files.ops,
		"replacement must be stored before the old file is removed")
}

func TestUpdatePostOldImageDeleteFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/old.png"
	posts.stored = p
	files := newFileStoreStub()
	files.deleteFn = func(context.Context, string) error { return errors.New("permission denied") }
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validUpdateInput()
	in.Image = &storage.Upload{Filename: "new.png", Content: []byte("png")}

	post, err := svc.UpdatePost(context.Background(), in)
	require.NoError(t, err, "a failed cleanup of the old file must not fail the update")
	assert.Equal(t, "posts/new.png", post.FeaturedImage)
}

func TestUpdatePostImageSaveFailureKeepsExisting(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/old.png"
	posts.stored = p
	files := newFileStoreStub()
	files.saveFn = func(context.Context, *storage.Upload) (string, error) {
		return "", errors.New("disk full")
	}
	svc := newTestService(posts, newCategoryRepoStub(), files)

	in := validUpdateInput()
	in.Image = &storage.Upload{Filename: "new.png", Content: []byte("png")}

	_, err := svc.UpdatePost(context.Background(), in)
	assertCode(t, err, models.CodeStorage)
	assert.Zero(t, posts.updateCalls)
	assert.Equal(t, []string{"save-failed:new.png"}, files.ops,
		"the existing file must never be touched when the replacement fails")
}

func TestUpdatePostWithoutImageLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/old.png"
	posts.stored = p
	files := newFileStoreStub()
	svc := newTestService(posts, newCategoryRepoStub(), files)

	post, err := svc.UpdatePost(context.Background(), validUpdateInput())
	require.NoError(t, err)
	assert.Equal(t, "posts/old.png", post.FeaturedImage)
	assert.Empty(t, files.ops, "no upload means zero file store calls")
}

func TestUpdatePostNotFound(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	_, err := svc.UpdatePost(context.Background(), validUpdateInput())
	assertCode(t, err, models.CodeNotFound)
}

func TestDeletePostRemovesRowThenImage(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/cover.png"
	posts.stored = p
	files := newFileStoreStub()

	var order []string
	posts.deleteFn = func(context.Context, uint) error {
		order = append(order, "row")
		return nil
	}
	files.deleteFn = func(context.Context, string) error {
		order = append(order, "file")
		return nil
	}
	svc := newTestService(posts, newCategoryRepoStub(), files)

	require.NoError(t, svc.DeletePost(context.Background(), 1))
	assert.Equal(t, []string{"row", "file"}, order, "the row goes first; files are cleanup")
	assert.Equal(t, []uint{1}, posts.deleteCalls)
}

func TestDeletePostFileFailureStillSucceeds(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	p := existingPost()
	p.FeaturedImage = "posts/cover.png"
	posts.stored = p
	files := newFileStoreStub()
	files.deleteFn = func(context.Context, string) error { return errors.New("unreachable") }
	svc := newTestService(posts, newCategoryRepoStub(), files)

	err := svc.DeletePost(context.Background(), 1)
	require.NoError(t, err, "a stranded file must not resurrect the post")
	assert.Equal(t, []uint{1}, posts.deleteCalls)
}

func TestDeletePostWithoutImageSkipsStore(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	posts.stored = existingPost()
	files := newFileStoreStub()
	svc := newTestService(posts, newCategoryRepoStub(), files)

	require.NoError(t, svc.DeletePost(context.Background(), 1))
	assert.Empty(t, files.ops)
}

func TestDeletePostNotFound(t *testing.T) {
	t.Parallel()
	posts := newPostRepoStub()
	svc := newTestService(posts, newCategoryRepoStub(), newFileStoreStub())

	err := svc.DeletePost(context.Background(), 99)
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, posts.deleteCalls)
}

func TestDerivePublishedAt(t *testing.T) {
	t.Parallel()
	svc := newTestService(newPostRepoStub(), newCategoryRepoStub(), newFileStoreStub())

	previous := fixedNow.Add(-10 * 24 * time.Hour)
	requested := fixedNow.Add(5 * 24 * time.Hour)

	tests := []struct {
		name        string
		isPublished bool
		requested   *time.Time
		previous    *time.Time
		want        *time.Time
	}{
		{"first publish stamps now", true, nil, nil, &fixedNow},
		{"first publish ignores requested", true, &requested, nil, &fixedNow},
		{"republish keeps original", true, &requested, &previous, &previous},
		{"draft with schedule", false, &requested, nil, &requested},
		{"draft reschedule", false, &requested, &previous, &requested},
		{"unpublish clears", false, nil, &previous, nil},
		{"plain draft", false, nil, nil, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := svc.derivePublishedAt(tt.isPublished, tt.requested, tt.previous)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.want), fmt.Sprintf("want %v, got %v", tt.want, got))
		})
	}
}
