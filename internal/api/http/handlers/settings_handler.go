package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/api/dto"
	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/service"
)

// SettingsHandler exposes site settings.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "settings": dto.NewSettingsResponse(settings)})
}

// Update handles PUT /admin/settings.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	settings, err := h.settings.Update(c.UserContext(), domain.Settings{
		SiteName:        req.SiteName,
		SupportEmail:    req.SupportEmail,
		LogoURL:         req.LogoURL,
		MaintenanceMode: req.MaintenanceMode,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "settings": dto.NewSettingsResponse(settings)})
}
