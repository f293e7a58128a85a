package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/store"
)

// Ensure Store satisfies the store.Store interface at compile time.
var _ store.Store = (*Store)(nil)

// Store provides MySQL-backed persistence for users and attendance.
type Store struct {
	db *sql.DB
}

// New wraps an already-connected *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ============================================================================
// USUARIOS
// ============================================================================

const userColumns = `id, email, name, password_hash, is_admin, ptp, ptp_verified, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (models.User, error) {
	var (
		u        models.User
		isAdmin  int
		verified int
		ptp      sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &isAdmin, &ptp, &verified, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, err
	}
	// MySQL entrega los booleanos como 0/1; normalizar aquí, no en handlers
	u.IsAdmin = isAdmin != 0
	u.PTPVerified = verified != 0
	u.PTP = ptp.String
	return u, nil
}

// FindUserByEmail fetches a user by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListUsers returns every user ordered by creation.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, is_admin, ptp, ptp_verified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, strings.ToLower(strings.TrimSpace(user.Email)), user.Name, user.PasswordHash,
		boolToInt(user.IsAdmin), user.PTP, boolToInt(user.PTPVerified))
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return models.User{}, store.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.FindUserByID(ctx, id)
}

// UpdateUser changes the mutable fields. Nil pointers leave a field untouched;
// email is immutable and has no parameter on purpose.
func (s *Store) UpdateUser(ctx context.Context, id int64, name *string, isAdmin *bool, passwordHash *string) error {
	fields := []string{}
	values := []any{}
	if name != nil {
		fields = append(fields, "name = ?")
		values = append(values, *name)
	}
	if isAdmin != nil {
		fields = append(fields, "is_admin = ?")
		values = append(values, boolToInt(*isAdmin))
	}
	if passwordHash != nil {
		fields = append(fields, "password_hash = ?")
		values = append(values, *passwordHash)
	}
	if len(fields) == 0 {
		return nil
	}
	values = append(values, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(fields, ", ")+` WHERE id = ?`, values...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindUserByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePTP rotates the PTP code and sets the verified flag.
func (s *Store) UpdatePTP(ctx context.Context, id int64, ptp string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET ptp = ?, ptp_verified = ? WHERE id = ?`, ptp, boolToInt(verified), id)
	if err != nil {
		return fmt.Errorf("update ptp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindUserByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes a user. La eliminación se rechaza mientras existan
// registros de asistencia; no hay borrado en cascada.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE user_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if count > 0 {
		return store.ErrHasAttendance
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

// ============================================================================
// ASISTENCIA
// ============================================================================

func scanAttendance(row interface{ Scan(dest ...any) error }) (models.AttendanceRecord, error) {
	var (
		r        models.AttendanceRecord
		clockOut sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ClockIn, &clockOut); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AttendanceRecord{}, store.ErrNotFound
		}
		return models.AttendanceRecord{}, err
	}
	if clockOut.Valid {
		t := clockOut.Time
		r.ClockOut = &t
	}
	return r, nil
}

// CountAttendance returns how many attendance rows reference the user.
func (s *Store) CountAttendance(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}

// FindOpenAttendance returns the most recently opened record without a
// clock-out, regardless of date: una jornada abierta no caduca a medianoche.
func (s *Store) FindOpenAttendance(ctx context.Context, userID int64) (models.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, clock_in, clock_out FROM attendance
		WHERE user_id = ? AND clock_out IS NULL
		ORDER BY clock_in DESC
		LIMIT 1
	`, userID)
	return scanAttendance(row)
}

// CreateAttendance opens a new work session. El índice único sobre
// (user_id, open_marker) garantiza a lo sumo una jornada abierta por usuario
// aunque lleguen dos clock-in concurrentes.
func (s *Store) CreateAttendance(ctx context.Context, userID int64, clockIn time.Time) (models.AttendanceRecord, error) {
	if _, err := s.FindOpenAttendance(ctx, userID); err == nil {
		return models.AttendanceRecord{}, store.ErrAlreadyClockedIn
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.AttendanceRecord{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (user_id, clock_in) VALUES (?, ?)`, userID, clockIn)
	if err != nil {
		// Dos clock-in en carrera: el perdedor choca contra uniq_open_session
		if strings.Contains(err.Error(), "Duplicate entry") {
			return models.AttendanceRecord{}, store.ErrAlreadyClockedIn
		}
		return models.AttendanceRecord{}, fmt.Errorf("create attendance: %w", err)
	}
	id, _ := res.LastInsertId()
	return models.AttendanceRecord{ID: id, UserID: userID, ClockIn: clockIn}, nil
}

// CloseAttendance stamps the clock-out on the open record.
func (s *Store) CloseAttendance(ctx context.Context, userID int64, clockOut time.Time) (models.AttendanceRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("close attendance: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, clock_in, clock_out FROM attendance
		WHERE user_id = ? AND clock_out IS NULL
		ORDER BY clock_in DESC
		LIMIT 1
		FOR UPDATE
	`, userID)
	record, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.AttendanceRecord{}, store.ErrNoActiveSession
		}
		return models.AttendanceRecord{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE attendance SET clock_out = ? WHERE id = ?`, clockOut, record.ID); err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("close attendance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("close attendance: %w", err)
	}

	record.ClockOut = &clockOut
	return record, nil
}

// ListAttendanceByUser returns the latest records, newest first.
func (s *Store) ListAttendanceByUser(ctx context.Context, userID int64, limit int) ([]models.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, clock_in, clock_out FROM attendance
		WHERE user_id = ?
		ORDER BY clock_in DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

// ListAttendanceInRange returns records whose clock-in falls inside [from, to],
// ascending — la vista de calendario del mes.
func (s *Store) ListAttendanceInRange(ctx context.Context, userID int64, from, to time.Time) ([]models.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, clock_in, clock_out FROM attendance
		WHERE user_id = ? AND clock_in >= ? AND clock_in <= ?
		ORDER BY clock_in ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

func collectAttendance(rows *sql.Rows) ([]models.AttendanceRecord, error) {
	records := []models.AttendanceRecord{}
	for rows.Next() {
		r, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ============================================================================
// PANEL DE ADMINISTRACIÓN
// ============================================================================

// CountUsers returns the total number of users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CountOpenSessions returns how many sessions are open right now.
func (s *Store) CountOpenSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE clock_out IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return count, nil
}

// ClockInTrends groups clock-ins per day since the given instant.
func (s *Store) ClockInTrends(ctx context.Context, since time.Time) ([]models.AttendanceTrend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DATE_FORMAT(clock_in, '%Y-%m-%d') AS day, COUNT(*) AS total
		FROM attendance
		WHERE clock_in >= ?
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("clock-in trends: %w", err)
	}
	defer rows.Close()

	trends := []models.AttendanceTrend{}
	for rows.Next() {
		var t models.AttendanceTrend
		if err := rows.Scan(&t.Date, &t.Count); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// RecentActivity returns the latest records across all users joined with the
// owner's name and email.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.clock_in, a.clock_out, u.name, u.email
		FROM attendance a
		JOIN users u ON a.user_id = u.id
		ORDER BY a.clock_in DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	entries := []models.ActivityEntry{}
	for rows.Next() {
		var (
			record   models.AttendanceRecord
			clockOut sql.NullTime
			name     string
			email    string
		)
		if err := rows.Scan(&record.ID, &record.ClockIn, &clockOut, &name, &email); err != nil {
			return nil, err
		}
		if clockOut.Valid {
			t := clockOut.Time
			record.ClockOut = &t
		}
		entry := models.ActivityFromRecord(record)
		entry.UserName = name
		entry.UserEmail = email
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
