package server

import (
	"io"
	"time"

	"blockhub/internal/authz"
	"blockhub/internal/models"
	"blockhub/internal/service"
	"blockhub/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// postRequest carries the writable post fields from JSON or multipart bodies.
type postRequest struct {
	Title       string `json:"title" form:"title"`
	Excerpt     string `json:"excerpt" form:"excerpt"`
	Content     string `json:"content" form:"content"`
	CategoryID  uint   `json:"category_id" form:"category_id"`
	IsPublished bool   `json:"is_published" form:"is_published"`
	PublishedAt string `json:"published_at" form:"published_at"`
}

// parsePostRequest decodes the request body and, for multipart bodies, the
// optional featured_image file. On failure it writes the response and
// returns errResponseWritten.
func (s *Server) parsePostRequest(c *fiber.Ctx) (*postRequest, *time.Time, *storage.Upload, error) {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return nil, nil, nil, errResponseWritten
	}

	var publishedAt *time.Time
	if req.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339, req.PublishedAt)
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("published_at must be RFC 3339 formatted"))
			return nil, nil, nil, errResponseWritten
		}
		publishedAt = &t
	}

	var upload *storage.Upload
	if fh, err := c.FormFile("featured_image"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read featured_image upload"))
			return nil, nil, nil, errResponseWritten
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read featured_image upload"))
			return nil, nil, nil, errResponseWritten
		}
		upload = &storage.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		}
	}

	return &req, publishedAt, upload, nil
}

// ListPosts handles GET /api/admin/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.PostView); err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	posts, total, err := s.postService.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  posts,
		"total": total,
	})
}

// GetPost handles GET /api/admin/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.PostView); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/admin/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := s.requireCapability(c, authz.PostCreate)
	if err != nil {
		return nil
	}
	req, publishedAt, upload, err := s.parsePostRequest(c)
	if err != nil {
		return nil
	}

	if req.IsPublished {
		if _, err := s.requireCapability(c, authz.PostPublish); err != nil {
			return nil
		}
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:    userID,
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		IsPublished: req.IsPublished,
		PublishedAt: publishedAt,
		Image:       upload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/admin/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.PostEdit); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, publishedAt, upload, err := s.parsePostRequest(c)
	if err != nil {
		return nil
	}

	if req.IsPublished {
		if _, err := s.requireCapability(c, authz.PostPublish); err != nil {
			return nil
		}
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:      id,
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		IsPublished: req.IsPublished,
		PublishedAt: publishedAt,
		Image:       upload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/admin/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.PostDelete); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
