package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/domain"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

// Authorize allows only an identity whose role equals required. Roles do not nest.
func Authorize(identity *domain.Identity, required domain.Role) Decision {
	if identity == nil {
		return Denied
	}
	if _, ok := domain.ParseRole(string(required)); !ok {
		return Denied
	}
	if identity.Role != required {
		return Denied
	}
	return Allowed
}

// RequireAuthenticated rejects requests without a resolved identity.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}

// RequireRole rejects unauthenticated callers with 401 and role mismatches with 403.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if Authorize(identity, role) != Allowed {
			return apperrors.NewForbidden(string(role) + " role required")
		}
		return c.Next()
	}
}
