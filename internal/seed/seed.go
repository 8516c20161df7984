// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"

	"blockhub/internal/models"
	"blockhub/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// SuperAdminRole holders bypass individual permission checks.
const SuperAdminRole = "super admin"

// rolePermissions maps each seeded role to the permissions it grants. The
// super admin role carries none; it is special-cased by the authorizer.
var rolePermissions = map[string][]string{
	SuperAdminRole: {},
	"admin": {
		"view posts", "create posts", "edit posts", "delete posts", "publish posts",
		"view categories", "create categories", "edit categories", "delete categories",
		"view users", "create users", "edit users", "delete users",
		"view roles", "create roles", "edit roles", "delete roles",
	},
	"editor": {
		"view posts", "create posts", "edit posts", "delete posts", "publish posts",
		"view categories", "create categories", "edit categories", "delete categories",
		"view users",
	},
	"author": {
		"view posts", "create posts", "edit posts",
	},
	"user": {
		"view posts",
	},
}

var defaultCategories = []models.Category{
	{Name: "Technology", Slug: "technology", Description: "Software, hardware, and everything in between"},
	{Name: "Design", Slug: "design", Description: "Interfaces, typography, and visual craft"},
	{Name: "Engineering", Slug: "engineering", Description: "Notes from the build side"},
	{Name: "Culture", Slug: "culture", Description: "How we work together"},
	{Name: "News", Slug: "news", Description: "Announcements and releases"},
}

// RolesAndPermissions creates the role and permission rows and links them.
// It is idempotent; existing rows are reused.
func RolesAndPermissions(db *gorm.DB) error {
	ctx := context.Background()
	rbacRepo := repository.NewRBACRepository(db)

	for roleName, permNames := range rolePermissions {
		role, err := rbacRepo.FindOrCreateRole(ctx, roleName)
		if err != nil {
			return fmt.Errorf("create role %q: %w", roleName, err)
		}

		perms := make([]models.Permission, 0, len(permNames))
		for _, permName := range permNames {
			perm, err := rbacRepo.FindOrCreatePermission(ctx, permName)
			if err != nil {
				return fmt.Errorf("create permission %q: %w", permName, err)
			}
			perms = append(perms, *perm)
		}
		if len(perms) > 0 {
			if err := rbacRepo.SetRolePermissions(ctx, role, perms); err != nil {
				return fmt.Errorf("attach permissions to %q: %w", roleName, err)
			}
		}
	}
	return nil
}

// Categories creates the default category set, reusing existing rows.
func Categories(db *gorm.DB) error {
	for _, category := range defaultCategories {
		c := category
		if err := db.Where(models.Category{Slug: c.Slug}).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("create category %q: %w", c.Name, err)
		}
	}
	return nil
}

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	if err := RolesAndPermissions(db); err != nil {
		return fmt.Errorf("seed roles and permissions: %w", err)
	}
	log.Println("roles and permissions seeded")

	if err := Categories(db); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	log.Println("categories seeded")

	f := NewFactory(db)

	admin, err := f.CreateAdmin()
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("admin account ready: %s", admin.Email)

	users, err := f.CreateUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	log.Printf("%d demo users created", len(users))

	var categories []models.Category
	if err := db.Find(&categories).Error; err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	authors := append([]*models.User{admin}, users...)
	posts, err := f.CreatePosts(authors, categories, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	log.Printf("%d demo posts created", len(posts))

	log.Println("Seeding complete")
	return nil
}

// clearData removes demo rows. Join tables go first so foreign keys hold.
func clearData(db *gorm.DB) error {
	for _, stmt := range []string{
		"DELETE FROM posts",
		"DELETE FROM user_roles",
		"DELETE FROM users",
		"DELETE FROM categories",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
