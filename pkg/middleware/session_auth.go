package middleware

import (
	"net/http"

	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/wrapper"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const UserIDContextKey = "user_id"

// SessionAuth admits requests whose bearer token belongs to the signed-in
// session and stores the user id in locals.
func (a *AuthMiddleware) SessionAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "missing authorization header", nil))
		}

		token, ok := authentication.BearerToken(authHeader)
		if !ok {
			logger.AddToContext(c.UserContext(), zap.String("auth", "malformed"))
			return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "malformed authorization header", nil))
		}

		if a.Session == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "not signed in", nil))
		}
		userID, ok := a.Session(token)
		if !ok {
			logger.AddToContext(c.UserContext(), zap.String("auth", "rejected"))
			return c.Status(fiber.StatusUnauthorized).JSON(wrapper.ResponseFailed(http.StatusUnauthorized, "invalid or expired session", nil))
		}

		c.Locals(UserIDContextKey, userID)
		logger.AddToContext(c.UserContext(), zap.String(logger.FieldUserID, userID))

		return c.Next()
	}
}

// UserID returns the id SessionAuth stored, empty when the route is public.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDContextKey).(string)
	return id
}
