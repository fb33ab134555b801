package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

// RequireAuthenticated ensures a caller identity is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireStaff ensures the caller holds a staff role (admin or owner).
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !ident.IsStaff() {
			return apperrors.NewForbidden("staff role required")
		}
		return c.Next()
	}
}
