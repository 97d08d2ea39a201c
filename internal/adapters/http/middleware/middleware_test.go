package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"barangay-services/internal/config"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{AppMode: "dev", JWT: config.JWTConfig{Secret: "secret"}}
}

func bearer(t *testing.T, role string, barangayID *uint) string {
	t.Helper()
	token, err := jwt.GenerateAccessToken(5, "user", role, barangayID, "secret", 5)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthAndRoles(t *testing.T) {
	cfg := testConfig()
	app := fiber.New()
	app.Get("/mod", AuthMiddleware(cfg), ModeratorOrAdmin(), func(c *fiber.Ctx) error {
		barangayID, _ := c.Locals("barangayID").(*uint)
		if barangayID == nil {
			return c.SendString("none")
		}
		return c.JSON(fiber.Map{"user": c.Locals("userID"), "barangay": *barangayID})
	})
	app.Get("/admin", AuthMiddleware(cfg), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/optional", OptionalAuth(cfg), func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); ok {
			return c.SendString("signed-in")
		}
		return c.SendString("anonymous")
	})

	barangayID := uint(4)
	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"no token", "/mod", "", fiber.StatusUnauthorized},
		{"garbage token", "/mod", "Bearer nope", fiber.StatusUnauthorized},
		{"resident refused", "/mod", bearer(t, string(domain.RoleResident), nil), fiber.StatusForbidden},
		{"moderator allowed", "/mod", bearer(t, string(domain.RoleModerator), &barangayID), fiber.StatusOK},
		{"moderator not admin", "/admin", bearer(t, string(domain.RoleModerator), nil), fiber.StatusForbidden},
		{"admin allowed", "/admin", bearer(t, string(domain.RoleAdmin), nil), fiber.StatusNoContent},
		{"optional anonymous", "/optional", "", fiber.StatusOK},
		{"optional with bad token", "/optional", "Bearer nope", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("cookie token wins", func(t *testing.T) {
		token, err := jwt.GenerateAccessToken(5, "user", string(domain.RoleAdmin), nil, "secret", 5)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Cookie", "access_token="+token)
		req.Header.Set("Authorization", "Bearer nope")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})
}

func TestCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/public", PublicCache(time.Hour), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/broken", PublicCache(time.Hour), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/private", NoCacheHeaders(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	resp, err = app.Test(httptest.NewRequest("GET", "/broken", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Cache-Control"))

	resp, err = app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, "no-store, no-cache, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestLimiterStorageWithoutRedis(t *testing.T) {
	assert.Nil(t, limiterStorage(nil, "limiter:api:"))
}
