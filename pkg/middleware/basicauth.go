package middleware

import (
	"net/http"
	"strings"

	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/gofiber/fiber/v2"
)

type IAuthMiddleware interface {
	// Bearer token of the signed-in session
	SessionAuth() fiber.Handler

	// Basic Auth Admin
	BasicAuthAdmin() fiber.Handler
}

// SessionLookup resolves a bearer token to the signed-in user id.
type SessionLookup func(token string) (userID string, ok bool)

type AuthMiddleware struct {
	Basic   authentication.IBasicAuthService
	Session SessionLookup
}

// mockery:ignore
type AuthConfig func(*AuthOpts)

type AuthOpts struct {
	*authentication.BasicAuthConfig
	lookup SessionLookup
}

func SetBasicAuth(basicAuthConfig *authentication.BasicAuthConfig) AuthConfig {
	return func(o *AuthOpts) {
		o.BasicAuthConfig = basicAuthConfig
	}
}

func SetSessionLookup(lookup SessionLookup) AuthConfig {
	return func(o *AuthOpts) {
		o.lookup = lookup
	}
}

func NewAuthMiddleware(opts ...AuthConfig) *AuthMiddleware {
	var o AuthOpts
	for _, opt := range opts {
		opt(&o)
	}

	return &AuthMiddleware{
		Basic:   authentication.NewBasicAuthService(o.BasicAuthConfig),
		Session: o.lookup,
	}
}

func (a *AuthMiddleware) BasicAuthAdmin() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		// get auth from header
		auth := ctx.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Basic ") {
			return responseUnauthorized(ctx, "Basic", "Invalid auth")
		}

		// decode auth
		username, password := a.Basic.DecodeFromHeader(auth)
		if !a.Basic.Validate(username, password) {
			return responseUnauthorized(ctx, "Basic", "Invalid auth")
		}
		return ctx.Next()
	}
}

func responseUnauthorized(c *fiber.Ctx, scheme string, message ...string) error {
	if scheme == "Basic" {
		c.Set("WWW-Authenticate", "Basic realm=Restricted")
	} else {
		c.Set("WWW-Authenticate", scheme)
	}
	response := fiber.Map{
		"message": message[0],
	}
	if len(message) > 1 {
		response["statusCode"] = message[1]
	}
	return c.Status(http.StatusUnauthorized).JSON(response)
}
