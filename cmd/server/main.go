package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/yourorg/asistenciacl/internal/auth"
	"github.com/yourorg/asistenciacl/internal/cache"
	appdb "github.com/yourorg/asistenciacl/internal/db"
	"github.com/yourorg/asistenciacl/internal/live"
	"github.com/yourorg/asistenciacl/internal/middleware"
	"github.com/yourorg/asistenciacl/internal/routes"
	mysqlstore "github.com/yourorg/asistenciacl/internal/store/mysql"
)

// dbConnectAttempts limita los reintentos antes de abortar el arranque.
const dbConnectAttempts = 12

func main() {
	_ = godotenv.Load()

	app := fiber.New()
	app.Use(logger.New())
	app.Use(middleware.RateLimiter())

	// ============================================================================
	// DB CONNECTION (reintentos con backoff fijo; si no conecta, el proceso
	// falla aquí, explícitamente, nunca dentro de un paquete de librería)
	// ============================================================================
	db, err := connectWithRetry()
	if err != nil {
		log.Fatalf("❌ No se pudo conectar a la base de datos: %v", err)
	}
	defer db.Close()

	userStore := mysqlstore.New(db)
	tokens := auth.NewTokens(loadJWTSecret(), loadTokenTTL())

	// Caché de identidades: TTL corto, invalidado en cada mutación de credenciales
	users := cache.NewCache(30*time.Second, time.Minute)
	defer users.Stop()

	hub := live.NewHub()

	routes.Register(app, routes.Deps{
		Store:  userStore,
		Tokens: tokens,
		Users:  users,
		Hub:    hub,
	})
	log.Printf("✅ Base de datos lista y rutas registradas")

	// ============================================================================
	// GRACEFUL SHUTDOWN
	// ============================================================================
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Señal de terminación recibida, cerrando servidor...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error cerrando servidor: %v", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Servidor escuchando en :%s", port)
	log.Println("📍 Endpoints disponibles:")
	log.Println("   POST /api/login                        - Credenciales")
	log.Println("   POST /api/validate-ptp                 - Verificación y rotación de PTP")
	log.Println("   POST /api/register-device              - Registro de dispositivo")
	log.Println("   GET  /api/check-auth                   - Eco de identidad")
	log.Println("   POST /api/attendance/clock-in          - Entrada de jornada")
	log.Println("   POST /api/attendance/clock-out         - Salida de jornada")
	log.Println("   GET  /api/attendance/status            - Estado actual")
	log.Println("   GET  /api/attendance/calendar          - Registros del mes")
	log.Println("   GET  /api/attendance/recent            - Actividad reciente")
	log.Println("   *    /api/admin/users[...]             - Gestión de usuarios (admin)")
	log.Println("   GET  /ws/activity                      - Dashboard en vivo")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

func connectWithRetry() (*sql.DB, error) {
	var lastErr error
	for i := 0; i < dbConnectAttempts; i++ {
		db, err := appdb.Connect()
		if err == nil {
			if err = db.Ping(); err == nil {
				if err = appdb.EnsureSchema(db); err == nil {
					return db, nil
				}
				log.Printf("ensure schema error: %v (retrying in 5s)", err)
			} else {
				log.Printf("db ping error: %v (retrying in 5s)", err)
			}
			db.Close()
			lastErr = err
		} else {
			log.Printf("db connect error: %v (retrying in 5s)", err)
			lastErr = err
		}
		time.Sleep(5 * time.Second)
	}
	return nil, lastErr
}

func loadJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Verificar si estamos en producción
		if os.Getenv("ENV") == "production" || os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ CRITICAL: JWT_SECRET must be set in production environment")
		}
		log.Println("⚠️ WARNING: Using default JWT secret (development only)")
		secret = "dev-secret-change-me-please-32chars!"
	}
	if len(secret) < 32 {
		log.Fatalf("❌ CRITICAL: JWT_SECRET must be at least 32 characters long (current: %d)", len(secret))
	}
	return secret
}

func loadTokenTTL() time.Duration {
	ttl := auth.DefaultTokenTTL
	if raw := os.Getenv("JWT_TTL"); raw != "" {
		dur, err := time.ParseDuration(raw)
		if err != nil || dur <= 0 {
			log.Printf("invalid JWT_TTL=%q, using default %s", raw, ttl)
		} else {
			ttl = dur
		}
	}
	return ttl
}
