package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/repository"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// SettingsService reads and updates site settings.
type SettingsService struct {
	settings repository.SettingsRepository
}

// NewSettingsService constructs the service.
func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns the settings, or defaults when none were saved yet.
func (s *SettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &domain.Settings{}, nil
		}
		return nil, err
	}
	return settings, nil
}

// Update overwrites the settings.
func (s *SettingsService) Update(ctx context.Context, input domain.Settings) (*domain.Settings, error) {
	input.SiteName = strings.TrimSpace(input.SiteName)
	input.SupportEmail = strings.TrimSpace(input.SupportEmail)
	input.LogoURL = strings.TrimSpace(input.LogoURL)
	if input.SiteName == "" {
		return nil, apperrors.NewValidationError("siteName is required", nil)
	}
	if input.SupportEmail != "" {
		if _, err := mail.ParseAddress(input.SupportEmail); err != nil {
			return nil, apperrors.NewValidationError("invalid supportEmail", nil)
		}
	}
	if err := s.settings.Update(ctx, &input); err != nil {
		return nil, err
	}
	return &input, nil
}
