package service

import (
	"context"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/repository"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// UserService exposes account administration.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns a page of accounts with the total count.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	return s.users.List(ctx, limit, offset)
}

// SetRole changes an account role. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actorID, userID, role string) (*domain.User, error) {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if actorID == userID && parsed != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("cannot remove your own admin role", nil)
	}
	if err := s.users.UpdateRole(ctx, userID, parsed); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// Delete removes an account other than the caller's.
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}
	return s.users.Delete(ctx, userID)
}
