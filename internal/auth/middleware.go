package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/domain"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Middleware resolves the caller on every request. It never rejects on its own;
// route groups add RequireAuthenticated or RequireRole.
type Middleware struct {
	resolver *Resolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(resolver *Resolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle stores the resolved identity in the request locals.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	res, err := m.resolver.Resolve(c)
	if err != nil {
		return apperrors.NewUpstreamError("session provider unavailable", err)
	}
	if res.Identity != nil {
		c.Locals(identityKey, res.Identity)
	}
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}
