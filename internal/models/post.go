// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a blog post. Posts are hard-deleted so a destroyed post
// frees its slug immediately (the unique index spans live rows only).
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Slug    string `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Excerpt string `gorm:"type:text;not null" json:"excerpt"`
	Content string `gorm:"type:text;not null" json:"content"`
	// FeaturedImage is an opaque file-store ref; empty means no image.
	FeaturedImage string     `gorm:"size:512" json:"featured_image,omitempty"`
	CategoryID    uint       `gorm:"not null;index" json:"category_id"`
	Category      Category   `gorm:"foreignKey:CategoryID" json:"category"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"user"`
	IsPublished   bool       `gorm:"not null;default:false" json:"is_published"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Visible reports whether the post is publicly visible at the given time.
func (p *Post) Visible(now time.Time) bool {
	return p.IsPublished && p.PublishedAt != nil && !p.PublishedAt.After(now)
}
