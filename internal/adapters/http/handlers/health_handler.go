package handlers

import (
	"barangay-services/internal/config"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	dbCheck    func() error
	redisCheck func() error
}

// NewHealthHandler creates a new health handler. redisCheck may be nil when
// Redis is not configured.
func NewHealthHandler(dbCheck, redisCheck func() error) *HealthHandler {
	return &HealthHandler{
		dbCheck:    dbCheck,
		redisCheck: redisCheck,
	}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	mode := ""
	if config.AppConfig != nil {
		mode = config.AppConfig.AppMode
	}
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 Barangay Services API v1.0 is running",
		"mode":    mode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API, database and cache health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	checks := fiber.Map{"api": "healthy"}

	checks["database"] = "healthy"
	if h.dbCheck != nil {
		if err := h.dbCheck(); err != nil {
			checks["database"] = "unhealthy"
			status = "degraded"
		}
	}

	if h.redisCheck != nil {
		checks["redis"] = "healthy"
		if err := h.redisCheck(); err != nil {
			checks["redis"] = "unhealthy"
		}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Barangay Services API v1.0",
		"version": "1.0.0",
	})
}
