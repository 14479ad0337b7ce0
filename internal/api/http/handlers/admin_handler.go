package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/api/dto"
	"github.com/pixelvault/marketplace/internal/service"
	"github.com/pixelvault/marketplace/pkg/pagination"
)

// AdminHandler exposes user management and reports.
type AdminHandler struct {
	users *service.UserService
	stats *service.StatsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{users: users, stats: stats}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	users, total, err := h.users.List(c.UserContext(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"users":      dto.NewUserResponses(users),
		"pagination": pagination.GetMeta(params, total),
	})
}

// SetUserRole handles PATCH /admin/users/:id/role.
func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.SetRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetRole(c.UserContext(), identity.ID, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": dto.NewUserResponse(user)})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), identity.ID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// StatsOverview handles GET /admin/stats/overview.
func (h *AdminHandler) StatsOverview(c *fiber.Ctx) error {
	overview, err := h.stats.Overview(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.NewOverviewResponse(overview)
	return c.JSON(fiber.Map{
		"success":      true,
		"users":        resp.Users,
		"images":       resp.Images,
		"premiumUsers": resp.PremiumUsers,
		"revenue":      resp.Revenue,
	})
}

// StatsMonthly handles GET /admin/stats/monthly?months=12.
func (h *AdminHandler) StatsMonthly(c *fiber.Ctx) error {
	buckets, err := h.stats.Monthly(c.UserContext(), c.QueryInt("months", 12))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "months": dto.NewMonthBucketResponses(buckets)})
}
