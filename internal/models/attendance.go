package models

import (
	"fmt"
	"time"
)

// AttendanceRecord representa una jornada registrada. ClockOut en nil
// significa que la jornada sigue abierta.
type AttendanceRecord struct {
	ID       int64      `json:"id" db:"id"`
	UserID   int64      `json:"user_id" db:"user_id"`
	ClockIn  time.Time  `json:"clockIn" db:"clock_in"`
	ClockOut *time.Time `json:"clockOut,omitempty" db:"clock_out"`
}

// Open reports whether the record still lacks a clock-out.
func (r AttendanceRecord) Open() bool {
	return r.ClockOut == nil
}

// AttendanceStatusResponse responde al dashboard del usuario.
type AttendanceStatusResponse struct {
	IsClockedIn bool              `json:"isClockedIn"`
	LastAction  *time.Time        `json:"lastAction"`
	Record      *AttendanceRecord `json:"record"`
}

// ActivityEntry es una fila del historial reciente, con estado y duración
// ya formateados para el frontend.
type ActivityEntry struct {
	ID        int64      `json:"id"`
	UserName  string     `json:"userName,omitempty"`
	UserEmail string     `json:"userEmail,omitempty"`
	ClockIn   time.Time  `json:"clockIn"`
	ClockOut  *time.Time `json:"clockOut"`
	Status    string     `json:"status"`             // "Active" o "Completed"
	Duration  string     `json:"duration,omitempty"` // "8h 15m", vacío si sigue abierta
}

// ActivityFromRecord deriva la entrada de actividad de un registro.
func ActivityFromRecord(r AttendanceRecord) ActivityEntry {
	entry := ActivityEntry{
		ID:       r.ID,
		ClockIn:  r.ClockIn,
		ClockOut: r.ClockOut,
		Status:   "Active",
	}
	if r.ClockOut != nil {
		entry.Status = "Completed"
		entry.Duration = FormatDuration(r.ClockIn, *r.ClockOut)
	}
	return entry
}

// FormatDuration renders elapsed time as whole hours plus remainder minutes.
func FormatDuration(clockIn, clockOut time.Time) string {
	diff := clockOut.Sub(clockIn)
	if diff < 0 {
		diff = 0
	}
	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// AttendanceTrend es un punto de la serie de los últimos días.
type AttendanceTrend struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// DashboardStats agrega los totales del panel de administración.
type DashboardStats struct {
	TotalUsers       int               `json:"totalUsers"`
	ActiveUsers      int               `json:"activeUsers"` // jornadas abiertas ahora mismo
	AttendanceTrends []AttendanceTrend `json:"attendanceTrends"`
}
