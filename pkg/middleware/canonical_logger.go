package middleware

import (
	"strconv"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// quietPaths are logged at debug level; probes hit them constantly.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// CanonicalLoggerMiddleware writes one log line per request carrying every
// field handlers added to the request's LogContext, and counts the request
// in m.
func CanonicalLoggerMiddleware(log *logger.CanonicalLogger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logCtx := logger.NewLogContext()
		c.Locals("log_context", logCtx)
		c.SetUserContext(logger.WithLogContext(c.UserContext(), logCtx))

		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			logCtx.AddField(zap.String(logger.FieldRequestID, id))
		}

		start := time.Now()

		// deferred so a recovered panic still gets its line
		defer func() {
			duration := time.Since(start)
			status := c.Response().StatusCode()
			m.HTTPRequest(c.Method(), strconv.Itoa(status))

			fields := append([]zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("route", c.Route().Path),
				zap.Int("status", status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			}, logCtx.Fields()...)

			switch {
			case status >= fiber.StatusInternalServerError:
				log.Error("http_request", fields...)
			case status >= fiber.StatusBadRequest:
				log.Info("http_request_client_error", fields...)
			case quietPaths[c.Path()]:
				log.Debug("http_request", fields...)
			default:
				log.Info("http_request", fields...)
			}
		}()

		return c.Next()
	}
}
