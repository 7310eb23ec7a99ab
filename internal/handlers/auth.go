package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"livechat/internal/services"
)

const localUserID = "user_id"

// AuthMiddleware verifies the bearer token and stores its user id in
// c.Locals("user_id").
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from Authorization header or query param `access_token`
		token := c.Query("access_token")
		if authHeader := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}

		userID, err := services.ValidateToken(secret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(localUserID, userID)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
