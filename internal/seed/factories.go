package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"blockhub/internal/models"
	"blockhub/internal/repository"
	"blockhub/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// demoPassword is the shared password for all seeded accounts.
const demoPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// CreateAdmin creates (or reuses) the well-known admin account holding the
// super admin role.
func (f *Factory) CreateAdmin() (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := models.User{
		Name:     "Site Admin",
		Email:    "admin@blockhub.local",
		Password: string(hashed),
	}
	if err := f.db.Where(models.User{Email: admin.Email}).
		Attrs(models.User{Name: admin.Name, Password: admin.Password}).
		FirstOrCreate(&admin).Error; err != nil {
		return nil, err
	}

	rbacRepo := repository.NewRBACRepository(f.db)
	role, err := rbacRepo.FindOrCreateRole(context.Background(), SuperAdminRole)
	if err != nil {
		return nil, err
	}
	if err := rbacRepo.AssignRole(context.Background(), &admin, role); err != nil {
		return nil, err
	}
	return &admin, nil
}

// CreateUser constructs and persists a demo account. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     gofakeit.Name(),
		Email:    fmt.Sprintf("%d.%s", gofakeit.Number(100, 999), gofakeit.Email()),
		Password: string(hashed),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}

	rbacRepo := repository.NewRBACRepository(f.db)
	roleName := []string{"editor", "author", "author", "user"}[f.rand.Intn(4)]
	role, err := rbacRepo.FindOrCreateRole(context.Background(), roleName)
	if err != nil {
		return nil, err
	}
	if err := rbacRepo.AssignRole(context.Background(), user, role); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUsers persists n demo accounts.
func (f *Factory) CreateUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CreatePost constructs and persists a demo post for the given author and
// category. Roughly two thirds of generated posts are published with a
// realistic timestamp spread; the rest stay drafts.
func (f *Factory) CreatePost(author *models.User, category *models.Category, overrides ...func(*models.Post)) (*models.Post, error) {
	title := strings.TrimSuffix(gofakeit.Sentence(6), ".")

	post := &models.Post{
		Title:      title,
		Slug:       fmt.Sprintf("%s-%d", slug.Generate(title), gofakeit.Number(1000, 9999)),
		Excerpt:    gofakeit.Sentence(15),
		Content:    gofakeit.Paragraph(3, 5, 8, "\n\n"),
		CategoryID: category.ID,
		UserID:     author.ID,
	}

	if f.rand.Intn(3) < 2 {
		daysBack := f.rand.Intn(90)
		hoursBack := f.rand.Intn(24)
		publishedAt := time.Now().UTC().
			Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)
		post.IsPublished = true
		post.PublishedAt = &publishedAt
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePosts persists n demo posts spread across the given authors and
// categories.
func (f *Factory) CreatePosts(authors []*models.User, categories []models.Category, n int) ([]*models.Post, error) {
	if len(authors) == 0 || len(categories) == 0 {
		return nil, fmt.Errorf("seed: need at least one author and one category")
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := authors[f.rand.Intn(len(authors))]
		category := categories[f.rand.Intn(len(categories))]
		post, err := f.CreatePost(author, &category)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
