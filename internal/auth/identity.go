package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/atelier-boutique/support-service/internal/domain"
	apperrors "github.com/atelier-boutique/support-service/pkg/util"
)

const identityKey = "auth_identity"

// Identity is the validated caller attached to every request and every
// realtime connection: user id plus role, nothing more.
type Identity struct {
	UserID string
	Role   domain.Role
}

// IsStaff reports whether the caller holds a staff role.
func (i Identity) IsStaff() bool {
	return i.Role.IsStaff()
}

// Middleware validates bearer tokens and attaches the caller identity.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs the identity middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. Websocket upgrade
// requests may carry the token as a query parameter since browsers cannot set
// headers on WebSocket handshakes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := tokenFromRequest(c)
	if token == "" {
		return apperrors.NewUnauthorized("missing bearer token")
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
	return c.Next()
}

func tokenFromRequest(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return Identity{}, false
	}
	ident, ok := val.(Identity)
	return ident, ok
}
