// Command seed populates the database with demo data.
package main

import (
	"flag"
	"fmt"
	"log"

	"blockhub/internal/config"
	"blockhub/internal/database"
	"blockhub/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "number of demo users to create")
	numPosts := flag.Int("posts", 50, "number of demo posts to create")
	clean := flag.Bool("clean", false, "delete existing data before seeding")
	rbacOnly := flag.Bool("rbac-only", false, "seed only roles, permissions, and categories")
	flag.Parse()

	if err := run(*numUsers, *numPosts, *clean, *rbacOnly); err != nil {
		log.Fatal(err)
	}
}

func run(numUsers, numPosts int, clean, rbacOnly bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if rbacOnly {
		if err := seed.RolesAndPermissions(db); err != nil {
			return err
		}
		if err := seed.Categories(db); err != nil {
			return err
		}
		log.Println("roles, permissions, and categories seeded")
		return nil
	}

	return seed.Seed(db, seed.Options{
		NumUsers:    numUsers,
		NumPosts:    numPosts,
		ShouldClean: clean,
	})
}
