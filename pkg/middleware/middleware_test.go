package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

func newTestApp(m *metrics.Metrics) *fiber.App {
	log := logger.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Use(CanonicalLoggerMiddleware(log, m))

	auth := NewAuthMiddleware(
		SetBasicAuth(&authentication.BasicAuthConfig{Username: "admin", Password: "s3cret"}),
		SetSessionLookup(func(token string) (string, bool) {
			if token == "good-token" {
				return "u1", true
			}
			return "", false
		}),
	)
	app.Get("/me", auth.SessionAuth(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Get("/admin", auth.BasicAuthAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}
	return app
}

func call(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestSessionAuth(t *testing.T) {
	app := newTestApp(nil)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "missing header", code: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic YWRtaW46czNjcmV0", code: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer stale", code: http.StatusUnauthorized},
		{name: "current token", header: "Bearer good-token", code: http.StatusOK, body: "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			code, body := call(t, app, req)
			if code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", code, tt.code, body)
			}
			if tt.body != "" && body != tt.body {
				t.Fatalf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestSessionAuthWithoutLookupRejects(t *testing.T) {
	app := fiber.New()
	app.Get("/me", NewAuthMiddleware().SessionAuth(), func(c *fiber.Ctx) error { return nil })
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer anything")
	if code, _ := call(t, app, req); code != http.StatusUnauthorized {
		t.Fatalf("status = %d", code)
	}
}

func TestBasicAuthAdmin(t *testing.T) {
	app := newTestApp(nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("admin", "wrong")
	code, _ := call(t, app, req)
	if code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("admin", "s3cret")
	if code, body := call(t, app, req); code != http.StatusOK || body != "ok" {
		t.Fatalf("status = %d body = %q", code, body)
	}
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp(nil)

	code, body := call(t, app, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if code != http.StatusInternalServerError || !strings.Contains(body, `"message":"boom"`) {
		t.Fatalf("status = %d body = %s", code, body)
	}

	code, body = call(t, app, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	if code != http.StatusTeapot || !strings.Contains(body, "short and stout") {
		t.Fatalf("status = %d body = %s", code, body)
	}
}

func TestCanonicalLoggerCountsRequests(t *testing.T) {
	m := metrics.New()
	app := newTestApp(m)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	call(t, app, req)

	_, body := call(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(body, `social_hub_http_requests_total{method="GET",status="200"} 1`) {
		t.Fatalf("request not counted:\n%s", body)
	}
}
