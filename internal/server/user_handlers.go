package server

import (
	"blockhub/internal/authz"
	"blockhub/internal/models"
	"blockhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.UserView); err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	users, total, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  users,
		"total": total,
	})
}

// GetUser handles GET /api/admin/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.UserView); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// CreateUser handles POST /api/admin/users
func (s *Server) CreateUser(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.UserCreate); err != nil {
		return nil
	}
	var req struct {
		Name     string   `json:"name"`
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Roles    []string `json:"roles"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// SetUserRoles handles PUT /api/admin/users/:id/roles
func (s *Server) SetUserRoles(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.UserEdit); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Roles []string `json:"roles"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.SetUserRoles(c.UserContext(), id, req.Roles)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/admin/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	actorID, err := s.requireCapability(c, authz.UserDelete)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if id == actorID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You cannot delete your own account"))
	}

	if err := s.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
