package handlers

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/asistenciacl/internal/store"
)

// HealthResponse representa el estado de salud del sistema
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version,omitempty"`
}

// HealthHandler expone el health check.
type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// Health proporciona un health check del sistema
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := make(map[string]string)
	overall := "healthy"

	// ============================================================================
	// CHECK: Base de Datos
	// ============================================================================
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		overall = "degraded"
	} else {
		services["database"] = "healthy"
	}

	statusCode := fiber.StatusOK
	if overall == "degraded" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
	})
}
