package handler

import (
	"errors"
	"net/http"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/media"
	"github.com/Alwanly/social-hub/internal/realtime"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/internal/session"
	"github.com/Alwanly/social-hub/pkg/deps"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/middleware"
	"github.com/Alwanly/social-hub/pkg/validator"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

type Handler struct {
	Logger   *logger.CanonicalLogger
	Backend  string
	Session  *session.Store
	Data     *data.Facade
	Realtime *realtime.Manager
	Media    *media.Pipeline
	CDN      media.CDN

	relay *relay
}

func NewHandler(d deps.App) *Handler {
	h := &Handler{
		Logger:   d.Logger,
		Backend:  d.Backend,
		Session:  d.Session,
		Data:     d.Data,
		Realtime: d.Realtime,
		Media:    d.Media,
		CDN:      d.CDN,
		relay:    newRelay(),
	}

	authed := d.Middleware.SessionAuth()
	admin := d.Middleware.BasicAuthAdmin()

	// Health check endpoint (no auth required)
	d.Fiber.Get("/health", h.health)

	// Identity
	d.Fiber.Post("/auth/signup", h.signUp)
	d.Fiber.Post("/auth/signin", h.signIn)
	d.Fiber.Post("/auth/reset-password", h.resetPassword)
	d.Fiber.Post("/auth/signout", authed, h.signOut)
	d.Fiber.Put("/auth/password", authed, h.updatePassword)
	d.Fiber.Get("/session", h.currentSession)
	d.Fiber.Get("/profile", authed, h.getProfile)
	d.Fiber.Put("/profile", authed, h.updateProfile)

	users := d.Fiber.Group("/users", authed)
	users.Get("search", h.searchUsers)
	users.Get(":id", h.getUser)
	users.Get(":id/posts", h.postsByUser)
	users.Get(":id/followers", h.followers)
	users.Get(":id/following", h.following)
	users.Post(":id/follow", h.follow)
	users.Delete(":id/follow", h.unfollow)

	posts := d.Fiber.Group("/posts", authed)
	posts.Get("", h.feed)
	posts.Post("", h.createPost)
	posts.Get(":id", h.getPost)
	posts.Delete(":id", h.deletePost)
	posts.Get(":id/comments", h.comments)
	posts.Post(":id/comments", h.addComment)
	posts.Post(":id/like", h.toggleLike)
	posts.Get(":id/likes", h.likes)
	d.Fiber.Delete("/comments/:id", authed, h.deleteComment)

	listings := d.Fiber.Group("/listings", authed)
	listings.Get("", h.listings)
	listings.Post("", h.createListing)
	listings.Get(":id", h.getListing)
	listings.Delete(":id", h.deleteListing)

	d.Fiber.Get("/deals", authed, h.deals)
	d.Fiber.Post("/deals", authed, h.createDeal)
	d.Fiber.Get("/topics", authed, h.topics)
	d.Fiber.Post("/topics", authed, h.createTopic)

	spaces := d.Fiber.Group("/spaces", authed)
	spaces.Get("", h.spaces)
	spaces.Post("", h.createSpace)
	spaces.Post(":id/join", h.joinSpace)
	spaces.Delete(":id/join", h.leaveSpace)

	chats := d.Fiber.Group("/chats", authed)
	chats.Get("", h.chats)
	chats.Post("direct", h.directChat)
	chats.Get(":id/messages", h.messages)
	chats.Post(":id/messages", h.sendMessage)
	chats.Post(":id/read", h.markRead)

	d.Fiber.Get("/notifications", authed, h.notifications)
	d.Fiber.Post("/notifications/read", authed, h.markNotificationsRead)

	d.Fiber.Get("/media/urls", h.deriveURLs)
	d.Fiber.Post("/media/:bucket", authed, h.upload)
	d.Fiber.Get("/media/:bucket", authed, h.listMedia)
	d.Fiber.Delete("/media/:bucket", authed, h.removeMedia)

	rt := d.Fiber.Group("/realtime")
	rt.Get("", authed, h.realtimeStatus)
	rt.Get("events", authed, h.realtimeEvents)
	rt.Post("subscriptions", authed, h.subscribe)
	rt.Delete("subscriptions/:name", authed, h.unsubscribe)
	rt.Post("suspend", authed, h.suspend)
	rt.Post("resume", authed, h.resume)
	rt.Delete("", admin, h.unsubscribeAll)

	if d.Metrics != nil {
		d.Fiber.Get("/metrics", admin, adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	return h
}

// Close ends every open event stream.
func (h *Handler) Close() {
	h.relay.close()
}

// health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.HealthCheckResponse
// @Router       /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthCheckResponse{
		Status:   "healthy",
		Backend:  h.Backend,
		SignedIn: h.Session.Current().Active(),
		Realtime: string(h.Realtime.State()),
		Channels: h.Realtime.Len(),
	})
}

// statusFor maps a failure to the HTTP status the presentation layer sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrConflict), errors.Is(err, media.ErrConflict), errors.Is(err, session.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, data.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrUnauthorized), errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, data.ErrInvalidArgument), errors.Is(err, media.ErrInvalidFile),
		errors.Is(err, media.ErrUnknownBucket), errors.Is(err, media.ErrUnknownPreset),
		errors.Is(err, realtime.ErrUnknownKind), errors.Is(err, realtime.ErrMissingKey),
		errors.Is(err, realtime.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, realtime.ErrSuspended), errors.Is(err, realtime.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func respond[T any](c *fiber.Ctx, res wrapper.Result[T], okCode int) error {
	code := okCode
	if err := res.Err(); err != nil {
		code = statusFor(err)
		logger.AddToContext(c.UserContext(), zap.Error(err))
	}
	if w := res.Warnings(); len(w) > 0 {
		logger.AddToContext(c.UserContext(), zap.Strings("warnings", w))
	}
	return c.Status(code).JSON(wrapper.ToJSON(res, okCode, code))
}

func operation(c *fiber.Ctx, name string) {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, name))
}

// bind parses the body into req and validates it. It writes the 400
// response itself and reports false when the request must stop.
func bind(c *fiber.Ctx, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return false, c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "Invalid request body", nil))
	}
	return validate(c, req)
}

func bindQuery(c *fiber.Ctx, req any) (bool, error) {
	if err := c.QueryParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return false, c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "Invalid query", nil))
	}
	return validate(c, req)
}

func validate(c *fiber.Ctx, req any) (bool, error) {
	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return false, c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "validation failed", validator.TranslateError(err)))
	}
	return true, nil
}

func page(q dto.PageQuery) data.Page {
	return data.Page{Limit: q.Limit, Offset: q.Offset}
}

func me(c *fiber.Ctx) string {
	return middleware.UserID(c)
}
