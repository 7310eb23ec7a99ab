package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"livechat/internal/services"
)

// API holds what the REST routes need.
type API struct {
	Messages  *services.MessageService
	Presence  *services.PresenceService
	JWTSecret string
	Logger    zerolog.Logger
}

// RegisterAPI mounts the protected REST routes on router.
func RegisterAPI(router fiber.Router, api API) {
	protected := router.Group("/", AuthMiddleware(api.JWTSecret))

	protected.Post("/messages/send", SendMessageHandler(api.Messages, api.Logger))
	protected.Get("/messages/:chatId", GetMessagesHandler(api.Messages, api.Logger))
	protected.Put("/messages/:messageId", EditMessageHandler(api.Messages, api.Logger))
	protected.Delete("/messages/:messageId", DeleteMessageHandler(api.Messages, api.Logger))

	protected.Get("/users/online", OnlineUsersHandler(api.Presence, api.Logger))
}
