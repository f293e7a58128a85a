package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/asistenciacl/internal/cache"
	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/store"
)

// ============================================================================
// IDENTIDAD POR CABECERAS
// ============================================================================
// Toda petición autenticada llega con x-user-email y, para no-admin,
// x-user-ptp. Este middleware valida la identidad UNA vez por request y deja
// el usuario saneado en c.Locals("user"); los handlers nunca re-derivan
// identidad por su cuenta. Los admin quedan exentos del chequeo de PTP.

// UserLocalKey is the Locals key under which the validated user is stored.
const UserLocalKey = "user"

// UserCacheKey returns the cache key for an email's identity lookup.
// Toda mutación de credenciales debe invalidar esta key.
func UserCacheKey(email string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(email))
}

// Identity validates the x-user-email / x-user-ptp headers against the store.
// El caché (TTL corto) absorbe la consulta repetida por request.
func Identity(s store.Store, users *cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email := strings.TrimSpace(c.Get("x-user-email"))
		ptp := c.Get("x-user-ptp")

		if email == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Unauthorized"})
		}

		user, err := lookupUser(c, s, users, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Unauthorized"})
			}
			log.Printf("❌ Error consultando usuario %s: %v", email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}

		// Para no-admin el PTP vigente actúa como segundo secreto: debe venir
		// no vacío e idéntico al almacenado (igualdad de strings, no numérica)
		if !user.IsAdmin {
			if ptp == "" || ptp != user.PTP {
				return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Unauthorized"})
			}
		}

		c.Locals(UserLocalKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Debe encadenarse después de
// Identity. Las violaciones devuelven 401, nunca 403 (fail closed).
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if !ok || !user.IsAdmin {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Unauthorized"})
		}
		return c.Next()
	}
}

// UserFromCtx recovers the validated user placed by Identity.
func UserFromCtx(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(UserLocalKey).(models.User)
	return user, ok
}

func lookupUser(c *fiber.Ctx, s store.Store, users *cache.Cache, email string) (models.User, error) {
	key := UserCacheKey(email)
	if users != nil {
		if cached, found := users.Get(key); found {
			if user, ok := cached.(models.User); ok {
				return user, nil
			}
		}
	}
	user, err := s.FindUserByEmail(c.Context(), email)
	if err != nil {
		return models.User{}, err
	}
	if users != nil {
		users.Set(key, user)
	}
	return user, nil
}
