package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/domain"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func requireIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	return identity, nil
}

func pathParam(c *fiber.Ctx, name string) (string, error) {
	value := strings.TrimSpace(c.Params(name))
	if value == "" {
		return "", apperrors.NewValidationError(name+" is required", nil)
	}
	return value, nil
}
