package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"livechat/internal/hub"
)

// WebSocketHandler serves one websocket connection: it registers the
// connection with the hub, feeds frames to the socket dispatcher in order
// and cleans up presence and rooms when the peer goes away.
func WebSocketHandler(h *hub.Hub, sock *Socket, logger zerolog.Logger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Generate a unique ID for this connection
		connID := uuid.New().String()
		log := logger.With().Str("conn_id", connID).Logger()

		client := h.Register(connID, c)
		log.Debug().Msg("connection opened")

		defer func() {
			sock.Disconnect(connID)
			h.Unregister(connID)
			// The conn must not be written after this handler returns.
			<-client.Done()
			c.Close()
			log.Debug().Msg("connection closed")
		}()

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn().Err(err).Msg("read failed")
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}
			sock.HandleMessage(connID, msg)
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
