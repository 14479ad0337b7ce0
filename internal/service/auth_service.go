package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/events"
	"github.com/pixelvault/marketplace/internal/repository"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// SessionStore manages provider-backed login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID string, role domain.Role) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthService coordinates registration, login and profile flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   SessionStore
	codec      *auth.TokenCodec
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Sessions   SessionStore
	Codec      *auth.TokenCodec
	Dispatcher events.Dispatcher
	BcryptCost int
}

// SignupInput describes a password registration.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult carries the issued credential.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// ProfileInput updates the caller's profile.
type ProfileInput struct {
	Name      *string
	AvatarURL *string
}

// SocialProfile is the verified identity returned by the social login provider.
type SocialProfile struct {
	Email     string
	Name      string
	AvatarURL string
}

var errInvalidLogin = apperrors.NewUnauthenticated("invalid email or password")

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
	}
}

// Signup creates a password account. An existing email is a validation failure and nothing is written.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	missing := missingFields(map[string]string{"name": name, "email": email, "password": input.Password})
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{"min": auth.MinPasswordLength})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationError("email already registered", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Provider:     domain.ProviderPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewValidationError("email already registered", nil)
		}
		return nil, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventUserSignedUp, user.ID, events.UserSignedUpPayload{
		Email:    user.Email,
		Name:     user.Name,
		Provider: string(user.Provider),
	}))
	return user, nil
}

// Login verifies a password and issues a first-party credential.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, errInvalidLogin
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errInvalidLogin
	}
	token, expiresAt, err := s.codec.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout removes the provider session, if one was presented.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" || s.sessions == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.NewUpstreamError("session provider unavailable", err)
	}
	return nil
}

// CurrentUser loads the stored profile for the identity.
func (s *AuthService) CurrentUser(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("currentPassword and newPassword are required", nil)
	}
	if len(newPassword) < auth.MinPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"min": auth.MinPasswordLength})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Provider != domain.ProviderPassword || user.PasswordHash == "" {
		return apperrors.NewValidationError("account signs in with a social provider", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// UpdateProfile changes name and avatar.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*domain.User, error) {
	if input.Name == nil && input.AvatarURL == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if input.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SocialLogin finds or creates the account for a verified provider profile and opens a session.
func (s *AuthService) SocialLogin(ctx context.Context, profile SocialProfile) (*domain.User, *domain.Session, error) {
	if s.sessions == nil {
		return nil, nil, errors.New("session store not configured")
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, nil, apperrors.NewValidationError("provider did not return an email", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case apperrors.IsNotFound(err):
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = &domain.User{
			Name:      name,
			Email:     email,
			AvatarURL: profile.AvatarURL,
			Role:      domain.RoleUser,
			Provider:  domain.ProviderOIDC,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		publish(ctx, s.dispatcher, events.New(events.EventUserSignedUp, user.ID, events.UserSignedUpPayload{
			Email:    user.Email,
			Name:     user.Name,
			Provider: string(user.Provider),
		}))
	default:
		return nil, nil, err
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, apperrors.NewUpstreamError("session provider unavailable", err)
	}
	return user, sess, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
