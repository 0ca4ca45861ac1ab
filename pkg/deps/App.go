package deps

import (
	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/media"
	"github.com/Alwanly/social-hub/internal/realtime"
	"github.com/Alwanly/social-hub/internal/session"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/Alwanly/social-hub/pkg/middleware"
	"github.com/Alwanly/social-hub/pkg/poll"
	"github.com/gofiber/fiber/v2"
)

// App is what the root composition hands to the HTTP layer.
type App struct {
	Fiber      *fiber.App
	Logger     *logger.CanonicalLogger
	Middleware *middleware.AuthMiddleware
	Poller     poll.Poller
	Metrics    *metrics.Metrics

	Backend  string
	Session  *session.Store
	Data     *data.Facade
	Realtime *realtime.Manager
	Media    *media.Pipeline
	CDN      media.CDN
}
