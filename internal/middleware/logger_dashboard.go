package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/asistenciacl/internal/live"
)

// DashboardLogger espeja los logs de request al dashboard en tiempo real
func DashboardLogger(hub *live.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)

		// Determinar nivel de log basado en el status code
		level := "info"
		status := c.Response().StatusCode()
		if status >= 500 {
			level = "error"
		} else if status >= 400 {
			level = "warn"
		}

		message := fmt.Sprintf("%s %s", c.Method(), c.Path())

		metadata := map[string]any{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		}

		// Enviar al dashboard (siempre, el hub decidirá si hay clientes)
		hub.SendLog(level, message, metadata)

		return err
	}
}
