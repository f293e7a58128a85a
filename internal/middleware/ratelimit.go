package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter crea un middleware de rate limiting para toda la API
func RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        100,             // 100 requests
		Expiration: 1 * time.Minute, // por minuto
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // Limitar por IP
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "demasiadas solicitudes, intenta de nuevo en un minuto",
				"retry_after": 60,
			})
		},
		SkipFailedRequests:     false, // Contar requests fallidos
		SkipSuccessfulRequests: false, // Contar requests exitosos
		LimiterMiddleware:      limiter.SlidingWindow{},
	})
}

// StrictRateLimiter protege los endpoints de autenticación (login y
// validación de PTP) contra fuerza bruta: un PTP de 4 dígitos solo tiene
// 10000 combinaciones.
func StrictRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,              // Solo 10 requests
		Expiration: 1 * time.Minute, // por minuto
		KeyGenerator: func(c *fiber.Ctx) string {
			// Rate limit por IP + endpoint para mejor granularidad
			return c.IP() + ":" + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "demasiadas solicitudes de autenticación, intenta de nuevo en un minuto",
				"retry_after": 60,
			})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
