package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/asistenciacl/internal/auth"
	"github.com/yourorg/asistenciacl/internal/cache"
	"github.com/yourorg/asistenciacl/internal/live"
	"github.com/yourorg/asistenciacl/internal/middleware"
	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/store"
	"github.com/yourorg/asistenciacl/internal/validation"
)

// AdminHandler agrupa las operaciones del panel de administración.
// Todas las rutas van detrás de Identity + RequireAdmin.
type AdminHandler struct {
	store store.Store
	users *cache.Cache
	hub   *live.Hub
}

func NewAdminHandler(s store.Store, users *cache.Cache, hub *live.Hub) *AdminHandler {
	return &AdminHandler{store: s, users: users, hub: hub}
}

// ListUsers handles GET /api/admin/users.
// El código PTP no se incluye: solo se entrega al crear o resetear.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	all, err := h.store.ListUsers(c.Context())
	if err != nil {
		log.Printf("❌ Error listando usuarios: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	views := make([]models.AdminUserView, 0, len(all))
	for _, u := range all {
		views = append(views, u.AdminView())
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"users":   views,
	})
}

// GetUser handles GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid user id"})
	}

	user, err := h.store.FindUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": user.DTO()})
}

// CreateUser handles POST /api/admin/users.
// Asigna un PTP inicial aleatorio sin verificar y lo devuelve UNA sola vez.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = validation.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
	}
	if err := validation.ValidateName(req.Name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
	}
	ptp, err := auth.GeneratePTP()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to generate PTP"})
	}

	created, err := h.store.CreateUser(c.Context(), models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		IsAdmin:      req.IsAdmin,
		PTP:          ptp,
		PTPVerified:  false,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "Email already exists"})
		}
		log.Printf("❌ Error creando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	h.hub.SendAdmin("user_created", created.Email)
	log.Printf("✅ Usuario creado: id=%d, email=%s, admin=%v", created.ID, created.Email, created.IsAdmin)

	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"user":    created.DTO(),
		"ptp":     ptp,
	})
}

// UpdateUser handles PUT /api/admin/users/:id.
// El email es inmutable después de la creación; nombre, rol y contraseña
// pueden cambiar (la contraseña se re-hashea).
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid user id"})
	}

	var req models.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}

	target, err := h.store.FindUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if req.Name != nil {
		if err := validation.ValidateName(*req.Name); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
		}
	}

	var passwordHash *string
	if req.Password != nil {
		if err := validation.ValidatePassword(*req.Password); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
		}
		s := string(hash)
		passwordHash = &s
	}

	if err := h.store.UpdateUser(c.Context(), id, req.Name, req.IsAdmin, passwordHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error actualizando usuario %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	h.invalidate(target.Email)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "User updated successfully",
	})
}

// DeleteUser handles DELETE /api/admin/users/:id.
// Se rechaza con 409 mientras el usuario tenga registros de asistencia.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid user id"})
	}

	target, err := h.store.FindUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if err := h.store.DeleteUser(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrHasAttendance):
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "user has attendance history"})
		case errors.Is(err, store.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		default:
			log.Printf("❌ Error eliminando usuario %d: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
	}
	h.invalidate(target.Email)
	h.hub.SendAdmin("user_deleted", target.Email)
	log.Printf("🗑️ Usuario eliminado: id=%d, email=%s", id, target.Email)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}

// ResetPTP handles POST /api/admin/users/:id/reset-ptp.
// Genera un código nuevo, limpia la verificación (obliga a re-configurar el
// dispositivo) y devuelve el código UNA sola vez.
func (h *AdminHandler) ResetPTP(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid user id"})
	}

	target, err := h.store.FindUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "User not found"})
		}
		log.Printf("❌ Error consultando usuario %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	newPTP, err := auth.GeneratePTP()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to generate PTP"})
	}
	if err := h.store.UpdatePTP(c.Context(), id, newPTP, false); err != nil {
		log.Printf("❌ Error reseteando PTP de %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	h.invalidate(target.Email)
	h.hub.SendAdmin("ptp_reset", target.Email)
	log.Printf("🔄 PTP reseteado: id=%d, email=%s", id, target.Email)

	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "PTP reset successfully",
		"user": fiber.Map{
			"email": target.Email,
			"name":  target.Name,
		},
		"ptp": newPTP,
	})
}

// DashboardStats handles GET /api/admin/dashboard-stats.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	totalUsers, err := h.store.CountUsers(c.Context())
	if err != nil {
		log.Printf("❌ Error contando usuarios: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	activeUsers, err := h.store.CountOpenSessions(c.Context())
	if err != nil {
		log.Printf("❌ Error contando jornadas abiertas: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	trends, err := h.store.ClockInTrends(c.Context(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		log.Printf("❌ Error calculando tendencias: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	return c.Status(fiber.StatusOK).JSON(models.DashboardStats{
		TotalUsers:       totalUsers,
		ActiveUsers:      activeUsers,
		AttendanceTrends: trends,
	})
}

// RecentActivity handles GET /api/admin/recent-activity.
func (h *AdminHandler) RecentActivity(c *fiber.Ctx) error {
	entries, err := h.store.RecentActivity(c.Context(), 10)
	if err != nil {
		log.Printf("❌ Error consultando actividad reciente: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *AdminHandler) invalidate(email string) {
	if h.users != nil {
		h.users.Delete(middleware.UserCacheKey(email))
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
