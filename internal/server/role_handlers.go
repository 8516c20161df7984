package server

import (
	"blockhub/internal/authz"
	"blockhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListRoles handles GET /api/admin/roles
func (s *Server) ListRoles(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleView); err != nil {
		return nil
	}

	roles, err := s.roleService.ListRoles(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(roles)
}

// GetRole handles GET /api/admin/roles/:id
func (s *Server) GetRole(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleView); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	role, err := s.roleService.GetRole(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(role)
}

// CreateRole handles POST /api/admin/roles
func (s *Server) CreateRole(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleCreate); err != nil {
		return nil
	}
	var req struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	role, err := s.roleService.CreateRole(c.UserContext(), req.Name, req.Permissions)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// SetRolePermissions handles PUT /api/admin/roles/:id/permissions
func (s *Server) SetRolePermissions(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleEdit); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	role, err := s.roleService.SetRolePermissions(c.UserContext(), id, req.Permissions)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(role)
}

// DeleteRole handles DELETE /api/admin/roles/:id
func (s *Server) DeleteRole(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleDelete); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.roleService.DeleteRole(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPermissions handles GET /api/admin/permissions
func (s *Server) ListPermissions(c *fiber.Ctx) error {
	if _, err := s.requireCapability(c, authz.RoleView); err != nil {
		return nil
	}

	perms, err := s.roleService.ListPermissions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(perms)
}
