package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/api/dto"
	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/service"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// AccountHandler exposes signup, login and profile endpoints.
type AccountHandler struct {
	auth    *service.AuthService
	cookies auth.CookieSettings
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService, cookies auth.CookieSettings) *AccountHandler {
	return &AccountHandler{auth: authService, cookies: cookies}
}

// Signup handles POST /signup.
func (h *AccountHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserResponse(user),
	})
}

// Login handles POST /login and sets the credential cookie.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.cookies.SetCredentialCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(fiber.Map{
		"success":   true,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      dto.NewUserResponse(res.User),
	})
}

// Logout handles POST /logout. Every auth cookie is cleared even when the session store fails.
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(h.cookies.SessionCookieName)
	h.cookies.ClearAuthCookies(c)
	if err := h.auth.Logout(c.UserContext(), sessionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// UserToken handles GET /userToken.
func (h *AccountHandler) UserToken(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return c.JSON(fiber.Map{"success": true, "isAuthenticated": false, "user": nil})
	}
	user, err := h.auth.CurrentUser(c.UserContext(), identity)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"isAuthenticated": true,
		"user":            dto.NewUserResponse(user),
	})
}

// ChangePassword handles POST /changePassword.
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// UpdateProfile handles POST /updateProfile.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateProfile(c.UserContext(), identity.ID, service.ProfileInput{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": dto.NewUserResponse(user)})
}
