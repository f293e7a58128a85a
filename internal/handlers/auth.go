package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/asistenciacl/internal/auth"
	"github.com/yourorg/asistenciacl/internal/cache"
	"github.com/yourorg/asistenciacl/internal/middleware"
	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/store"
	"github.com/yourorg/asistenciacl/internal/validation"
)

// AuthHandler owns login, PTP validation and device registration.
type AuthHandler struct {
	store  store.Store
	tokens *auth.Tokens
	users  *cache.Cache
}

func NewAuthHandler(s store.Store, tokens *auth.Tokens, users *cache.Cache) *AuthHandler {
	return &AuthHandler{store: s, tokens: tokens, users: users}
}

// Login handles POST /api/login.
// El chequeo de credenciales es idéntico para humanos y administradores:
// ser admin es una propiedad del registro devuelto, no otro código de ruta.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = validation.NormalizeEmail(req.Email)
	if req.Email == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Email and password are required"})
	}

	user, err := h.store.FindUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Mismo mensaje que un password incorrecto: sin enumeración de correos
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Invalid credentials"})
		}
		log.Printf("❌ Error consultando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Invalid credentials"})
	}

	// Los admin nunca pasan por la configuración de PTP
	requiresPTP := !user.IsAdmin && !user.PTPVerified

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}

	log.Printf("✅ Login exitoso: id=%d, email=%s, admin=%v", user.ID, user.Email, user.IsAdmin)

	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.LoginResponse{
		Success:     true,
		User:        user.DTO(),
		RequiresPTP: requiresPTP,
		Token:       token,
		ExpiresAt:   expiresAt,
	})
}

// ValidatePTP handles POST /api/validate-ptp.
// El código mostrado al crear o resetear el usuario se consume aquí: se
// verifica, se rota a uno nuevo y se marca ptp_verified. Desde entonces el
// cliente debe reenviar el código VIGENTE en cada petición.
func (h *AuthHandler) ValidatePTP(c *fiber.Ctx) error {
	var req models.ValidatePTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = validation.NormalizeEmail(req.Email)
	if req.Email == "" || req.CurrentPTP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Email and PTP are required"})
	}

	user, err := h.store.FindUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	// Igualdad de strings, no numérica: "0042" != "42"
	if req.CurrentPTP != user.PTP {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Invalid PTP"})
	}

	newPTP, err := auth.GeneratePTP()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to generate PTP"})
	}
	if err := h.store.UpdatePTP(c.Context(), user.ID, newPTP, true); err != nil {
		log.Printf("❌ Error rotando PTP: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	h.invalidate(user.Email)

	log.Printf("✅ PTP verificado y rotado para %s", user.Email)
	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.ValidatePTPResponse{Success: true, NewPTP: newPTP})
}

// RegisterDevice handles POST /api/register-device.
// Entrega un device token opaco que el cliente guarda localmente. El servidor
// no lo persiste: la vinculación real del dispositivo la da el PTP reenviado.
func (h *AuthHandler) RegisterDevice(c *fiber.Ctx) error {
	var req models.RegisterDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = validation.NormalizeEmail(req.Email)
	if req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Missing required fields"})
	}

	user, err := h.store.FindUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	// Los admin registran el dispositivo sin chequeo de PTP
	if !user.IsAdmin {
		submitted := req.DeviceInfo.PTPNumber
		if !user.PTPVerified {
			// Primera verificación: consumir el código inicial y rotar
			if !auth.ValidPTPFormat(submitted) || submitted != user.PTP {
				return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Invalid PTP number"})
			}
			newPTP, err := auth.GeneratePTP()
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to generate PTP"})
			}
			if err := h.store.UpdatePTP(c.Context(), user.ID, newPTP, true); err != nil {
				log.Printf("❌ Error rotando PTP: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
			}
			h.invalidate(user.Email)
			user.PTP = newPTP
			user.PTPVerified = true
		} else {
			// Dispositivo ya verificado: debe reenviar el código vigente
			if submitted != user.PTP {
				return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "Invalid PTP number"})
			}
		}
	}

	deviceToken := auth.NewDeviceToken()
	log.Printf("📱 Dispositivo registrado para %s (admin=%v)", user.Email, user.IsAdmin)

	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.RegisterDeviceResponse{
		Success:     true,
		DeviceToken: deviceToken,
		User:        user.DTO(),
	})
}

// CheckAuth handles GET /api/check-auth. La validación real la hizo el
// middleware de identidad; aquí solo se devuelve el usuario saneado.
func (h *AuthHandler) CheckAuth(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.CheckAuthResponse{Authenticated: false})
	}
	return c.Status(fiber.StatusOK).JSON(models.CheckAuthResponse{
		Authenticated: true,
		User:          user.DTO(),
	})
}

func (h *AuthHandler) invalidate(email string) {
	if h.users != nil {
		h.users.Delete(middleware.UserCacheKey(email))
	}
}
