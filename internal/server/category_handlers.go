package server

import (
	"blockhub/internal/authz"
	"blockhub/internal/models"
	"blockhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories handles GET /api/admin/categories
func (s *Server) ListCategories(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.CategoryView); err != nil {
		return nil
	}

	categories, err := s.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /api/admin/categories/:id
func (s *Server) GetCategory(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.CategoryView); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	category, err := s.categoryService.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// CreateCategory handles POST /api/admin/categories
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.CategoryCreate); err != nil {
		return nil
	}
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/admin/categories/:id
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.CategoryEdit); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.UpdateCategory(c.UserContext(), id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/admin/categories/:id
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.CategoryDelete); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.DeleteCategory(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
