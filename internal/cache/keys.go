package cache

import (
	"fmt"
	"time"
)

const (
	postKeyPrefix      = "post:%d"
	postSlugKeyPrefix  = "post:slug:%s"
	userPermsKeyPrefix = "user:%d:perms"
	categoriesListKey  = "categories:all"
)

const (
	// PostTTL bounds staleness of cached published posts.
	PostTTL = 30 * time.Minute
	// PermsTTL bounds staleness of a user's cached permission set.
	PermsTTL = 5 * time.Minute
	// CategoriesTTL covers the sidebar category list.
	CategoriesTTL = 10 * time.Minute
)

// PostKey is the cache key for a post by ID.
func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyPrefix, postID)
}

// PostSlugKey is the cache key for a published post by slug.
func PostSlugKey(slug string) string {
	return fmt.Sprintf(postSlugKeyPrefix, slug)
}

// UserPermsKey is the cache key for a user's permission name set.
func UserPermsKey(userID uint) string {
	return fmt.Sprintf(userPermsKeyPrefix, userID)
}

// CategoriesKey is the cache key for the full category list.
func CategoriesKey() string {
	return categoriesListKey
}
