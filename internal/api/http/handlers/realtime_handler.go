package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/atelier-boutique/support-service/internal/auth"
	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/realtime"
)

const (
	wsUserIDKey = "ws_user_id"
	wsRoleKey   = "ws_role"
)

// RealtimeHandler upgrades authenticated requests to websocket connections
// and hands them to the gateway.
type RealtimeHandler struct {
	gateway *realtime.Gateway
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(gateway *realtime.Gateway) *RealtimeHandler {
	return &RealtimeHandler{gateway: gateway}
}

// Upgrade gates the websocket handshake. Identity is resolved before the
// upgrade and pinned into connection locals; frames never carry authority.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	c.Locals(wsUserIDKey, ident.UserID)
	c.Locals(wsRoleKey, ident.Role)
	return c.Next()
}

// Serve returns the websocket handler servicing one connection.
func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(wsUserIDKey).(string)
		role, _ := conn.Locals(wsRoleKey).(domain.Role)
		if userID == "" || !role.Valid() {
			_ = conn.Close()
			return
		}
		h.gateway.HandleConn(conn, userID, role)
	})
}
