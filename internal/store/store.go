package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/asistenciacl/internal/models"
)

// Errores centinela que los handlers traducen a códigos HTTP.
var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail indicates a uniqueness conflict on the email column.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrAlreadyClockedIn indicates the user has an open attendance record.
	ErrAlreadyClockedIn = errors.New("already clocked in")
	// ErrNoActiveSession indicates no open attendance record exists.
	ErrNoActiveSession = errors.New("no active clock-in found")
	// ErrHasAttendance blocks user deletion while attendance rows reference it.
	ErrHasAttendance = errors.New("user has attendance history")
)

// Store captures every persistence operation the handlers need. Una sola
// implementación (MySQL) detrás de la interfaz.
type Store interface {
	// Usuarios
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateUser(ctx context.Context, id int64, name *string, isAdmin *bool, passwordHash *string) error
	UpdatePTP(ctx context.Context, id int64, ptp string, verified bool) error
	DeleteUser(ctx context.Context, id int64) error

	// Asistencia
	CountAttendance(ctx context.Context, userID int64) (int, error)
	FindOpenAttendance(ctx context.Context, userID int64) (models.AttendanceRecord, error)
	CreateAttendance(ctx context.Context, userID int64, clockIn time.Time) (models.AttendanceRecord, error)
	CloseAttendance(ctx context.Context, userID int64, clockOut time.Time) (models.AttendanceRecord, error)
	ListAttendanceByUser(ctx context.Context, userID int64, limit int) ([]models.AttendanceRecord, error)
	ListAttendanceInRange(ctx context.Context, userID int64, from, to time.Time) ([]models.AttendanceRecord, error)

	// Panel de administración
	CountUsers(ctx context.Context) (int, error)
	CountOpenSessions(ctx context.Context) (int, error)
	ClockInTrends(ctx context.Context, since time.Time) ([]models.AttendanceTrend, error)
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error)

	// Salud
	Ping(ctx context.Context) error
}
