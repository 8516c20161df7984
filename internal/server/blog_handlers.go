package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListPublishedPosts handles GET /api/blog, the public post index. Only
// visible posts appear; ?category=<id> filters by category.
func (s *Server) ListPublishedPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 10)
	categoryID := uint(c.QueryInt("category", 0))

	posts, total, err := s.postService.ListPublished(c.UserContext(), categoryID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  posts,
		"total": total,
	})
}

// ShowPublishedPost handles GET /api/blog/:slug. Drafts and scheduled posts
// 404 here regardless of who asks.
func (s *Server) ShowPublishedPost(c *fiber.Ctx) error {
	slug := c.Params("slug")

	post, related, err := s.postService.GetPublishedBySlug(c.UserContext(), slug)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"post":    post,
		"related": related,
	})
}

// ListBlogCategories handles GET /api/blog/categories for the public sidebar.
func (s *Server) ListBlogCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}
