package dto

import (
	"time"

	"github.com/pixelvault/marketplace/internal/domain"
)

// SettingsRequest payload for updating site settings.
type SettingsRequest struct {
	SiteName        string `json:"siteName"`
	SupportEmail    string `json:"supportEmail"`
	LogoURL         string `json:"logoUrl"`
	MaintenanceMode bool   `json:"maintenanceMode"`
}

// SettingsResponse is the public view of site settings.
type SettingsResponse struct {
	SiteName        string     `json:"siteName"`
	SupportEmail    string     `json:"supportEmail"`
	LogoURL         string     `json:"logoUrl"`
	MaintenanceMode bool       `json:"maintenanceMode"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// NewSettingsResponse maps settings.
func NewSettingsResponse(s *domain.Settings) SettingsResponse {
	resp := SettingsResponse{
		SiteName:        s.SiteName,
		SupportEmail:    s.SupportEmail,
		LogoURL:         s.LogoURL,
		MaintenanceMode: s.MaintenanceMode,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
