package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/asistenciacl/internal/auth"
	"github.com/yourorg/asistenciacl/internal/cache"
	"github.com/yourorg/asistenciacl/internal/handlers"
	"github.com/yourorg/asistenciacl/internal/live"
	"github.com/yourorg/asistenciacl/internal/middleware"
	"github.com/yourorg/asistenciacl/internal/store"
)

// Deps agrupa las dependencias compartidas que consumen las rutas.
type Deps struct {
	Store  store.Store
	Tokens *auth.Tokens
	Users  *cache.Cache // caché de identidades para el middleware
	Hub    *live.Hub
}

// Register wires every route group into the Fiber app.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Store, deps.Tokens, deps.Users)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Store, deps.Hub)
	adminHandler := handlers.NewAdminHandler(deps.Store, deps.Users, deps.Hub)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	identity := middleware.Identity(deps.Store, deps.Users)

	// ============================================================================
	// API PÚBLICA
	// ============================================================================
	api := app.Group("/api")
	api.Use(middleware.DashboardLogger(deps.Hub))

	// Health check (sin rate limiting)
	api.Get("/health", healthHandler.Health)

	// ============================================================================
	// AUTENTICACIÓN (con rate limiting estricto: el PTP solo tiene 10000 combinaciones)
	// ============================================================================
	api.Post("/login", middleware.StrictRateLimiter(), authHandler.Login)
	api.Post("/validate-ptp", middleware.StrictRateLimiter(), authHandler.ValidatePTP)
	api.Post("/register-device", middleware.StrictRateLimiter(), authHandler.RegisterDevice)

	// Identidad por cabeceras, validada una vez por request por el middleware
	api.Get("/check-auth", identity, authHandler.CheckAuth)

	// ============================================================================
	// ASISTENCIA (requiere identidad)
	// ============================================================================
	attendance := api.Group("/attendance", identity)
	attendance.Post("/clock-in", attendanceHandler.ClockIn)
	attendance.Post("/clock-out", attendanceHandler.ClockOut)
	attendance.Get("/status", attendanceHandler.Status)
	attendance.Get("/calendar", attendanceHandler.Calendar)
	// GET /api/attendance/calendar?year=2026&month=8
	attendance.Get("/recent", attendanceHandler.Recent)

	// ============================================================================
	// ADMINISTRACIÓN (identidad + rol admin; las violaciones devuelven 401)
	// ============================================================================
	admin := api.Group("/admin", identity, middleware.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/users", adminHandler.CreateUser)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Put("/users/:id", adminHandler.UpdateUser)
	admin.Delete("/users/:id", adminHandler.DeleteUser)
	admin.Post("/users/:id/reset-ptp", adminHandler.ResetPTP)
	admin.Get("/dashboard-stats", adminHandler.DashboardStats)
	admin.Get("/recent-activity", adminHandler.RecentActivity)

	// ============================================================================
	// DASHBOARD EN VIVO (WebSocket)
	// ============================================================================
	// El hub difunde clock-in/clock-out y mutaciones administrativas a los
	// dashboards conectados.
	app.Use("/ws/activity", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/activity", websocket.New(func(conn *websocket.Conn) {
		deps.Hub.HandleConnection(conn)
	}))
}
