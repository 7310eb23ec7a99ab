package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"livechat/internal/models"
	"livechat/internal/services"
)

// SendMessageHandler creates a message in a chat the caller takes part in.
func SendMessageHandler(messages *services.MessageService, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
		}

		msg, err := messages.Send(c.Context(), services.SendInput{
			ChatID:            req.ChatID,
			Sender:            currentUser(c),
			Content:           req.Content,
			IV:                req.IV,
			FileURL:           req.FileURL,
			Origin:            services.OriginREST,
			RequireMembership: true,
		})
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "data": msg})
	}
}

// GetMessagesHandler returns the recent history of a chat.
func GetMessagesHandler(messages *services.MessageService, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := messages.History(c.Context(), c.Params("chatId"), currentUser(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": json.RawMessage(raw)})
	}
}

// EditMessageHandler replaces the content of a message.
func EditMessageHandler(messages *services.MessageService, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.EditMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
		}

		msg, err := messages.Edit(c.Context(), c.Params("messageId"), req.NewContent, req.IV)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": msg})
	}
}

// DeleteMessageHandler removes a message. Unlike the socket event it
// reports 404 for a message that does not exist.
func DeleteMessageHandler(messages *services.MessageService, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		msg, err := messages.GetMessage(c.Context(), c.Params("messageId"))
		if err != nil {
			return respondError(c, logger, err)
		}
		if err := messages.Delete(c.Context(), msg.ID, msg.ChatID); err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Message deleted successfully"})
	}
}

// OnlineUsersHandler lists the users with a live connection.
func OnlineUsersHandler(presence *services.PresenceService, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids, err := presence.OnlineUsers(c.Context())
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": ids})
	}
}

func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	default:
		logger.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "message": services.PublicMessage(err)})
}

// ErrorHandler renders errors returned by handlers and middleware in the
// same envelope as the handlers themselves.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}
		return respondError(c, logger, err)
	}
}
