package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/asistenciacl/internal/live"
	"github.com/yourorg/asistenciacl/internal/middleware"
	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/store"
)

// AttendanceHandler registra entradas y salidas de jornada.
type AttendanceHandler struct {
	store store.Store
	hub   *live.Hub
}

func NewAttendanceHandler(s store.Store, hub *live.Hub) *AttendanceHandler {
	return &AttendanceHandler{store: s, hub: hub}
}

// ClockIn registra la entrada del usuario autenticado.
// Falla con 409 si ya existe una jornada abierta, sin importar la fecha.
func (h *AttendanceHandler) ClockIn(c *fiber.Ctx) error {
	user, _ := middleware.UserFromCtx(c)

	record, err := h.store.CreateAttendance(c.Context(), user.ID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyClockedIn) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "already clocked in"})
		}
		log.Printf("❌ Error registrando entrada de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	h.hub.SendAttendance("clock_in", user.Email, user.Name, record.ID, record.ClockIn)
	log.Printf("🕐 Entrada registrada: %s (record=%d)", user.Email, record.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Successfully clocked in",
		"record":  record,
	})
}

// ClockOut cierra la jornada abierta del usuario autenticado.
// Si el invariante se hubiese violado, cierra la abierta más reciente.
func (h *AttendanceHandler) ClockOut(c *fiber.Ctx) error {
	user, _ := middleware.UserFromCtx(c)

	record, err := h.store.CloseAttendance(c.Context(), user.ID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNoActiveSession) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "no active clock-in found"})
		}
		log.Printf("❌ Error registrando salida de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	h.hub.SendAttendance("clock_out", user.Email, user.Name, record.ID, *record.ClockOut)
	log.Printf("🕐 Salida registrada: %s (record=%d)", user.Email, record.ID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Successfully clocked out",
		"record":  record,
	})
}

// Status responde si el usuario tiene una jornada abierta. Una jornada
// abierta cuenta sin importar la fecha: no caduca a medianoche.
func (h *AttendanceHandler) Status(c *fiber.Ctx) error {
	user, _ := middleware.UserFromCtx(c)

	open, err := h.store.FindOpenAttendance(c.Context(), user.ID)
	if err == nil {
		clockIn := open.ClockIn
		return c.Status(fiber.StatusOK).JSON(models.AttendanceStatusResponse{
			IsClockedIn: true,
			LastAction:  &clockIn,
			Record:      &open,
		})
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("❌ Error consultando estado de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	// Sin jornada abierta: informar la última acción registrada, si existe
	records, err := h.store.ListAttendanceByUser(c.Context(), user.ID, 1)
	if err != nil {
		log.Printf("❌ Error consultando historial de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	resp := models.AttendanceStatusResponse{IsClockedIn: false}
	if len(records) > 0 {
		last := records[0]
		clockIn := last.ClockIn
		resp.LastAction = &clockIn
		resp.Record = &last
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Calendar devuelve los registros del mes pedido (por defecto el actual),
// ascendentes por entrada. GET /api/attendance/calendar?year=2026&month=8
func (h *AttendanceHandler) Calendar(c *fiber.Ctx) error {
	user, _ := middleware.UserFromCtx(c)

	now := time.Now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	if month < 1 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid month"})
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	records, err := h.store.ListAttendanceInRange(c.Context(), user.ID, start, end)
	if err != nil {
		log.Printf("❌ Error consultando calendario de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	return c.Status(fiber.StatusOK).JSON(records)
}

// Recent devuelve las últimas 5 jornadas con estado y duración formateados.
func (h *AttendanceHandler) Recent(c *fiber.Ctx) error {
	user, _ := middleware.UserFromCtx(c)

	records, err := h.store.ListAttendanceByUser(c.Context(), user.ID, 5)
	if err != nil {
		log.Printf("❌ Error consultando actividad de %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	entries := make([]models.ActivityEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.ActivityFromRecord(r))
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}
