package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/asistenciacl/internal/auth"
	"github.com/yourorg/asistenciacl/internal/cache"
	"github.com/yourorg/asistenciacl/internal/models"
	"github.com/yourorg/asistenciacl/internal/routes"
	"github.com/yourorg/asistenciacl/internal/store"
)

// ============================================================================
// FAKE STORE EN MEMORIA
// ============================================================================
// Implementa store.Store con la misma semántica que el backend MySQL
// (errores centinela incluidos) para probar handlers y middleware sin DB.

type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]models.User
	records map[int64]models.AttendanceRecord
	nextUID int64
	nextRID int64
	pingErr error
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]models.User),
		records: make(map[int64]models.AttendanceRecord),
		nextUID: 1,
		nextRID: 1,
	}
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeStore) FindUserByID(_ context.Context, id int64) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = f.nextUID
	user.CreatedAt = time.Now()
	f.nextUID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id int64, name *string, isAdmin *bool, passwordHash *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if isAdmin != nil {
		u.IsAdmin = *isAdmin
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	f.users[id] = u
	return nil
}

func (f *fakeStore) UpdatePTP(_ context.Context, id int64, ptp string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PTP = ptp
	u.PTPVerified = verified
	f.users[id] = u
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	for _, r := range f.records {
		if r.UserID == id {
			return store.ErrHasAttendance
		}
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CountAttendance(_ context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) FindOpenAttendance(_ context.Context, userID int64) (models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UserID == userID && r.ClockOut == nil {
			return r, nil
		}
	}
	return models.AttendanceRecord{}, store.ErrNotFound
}

func (f *fakeStore) CreateAttendance(_ context.Context, userID int64, clockIn time.Time) (models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UserID == userID && r.ClockOut == nil {
			return models.AttendanceRecord{}, store.ErrAlreadyClockedIn
		}
	}
	record := models.AttendanceRecord{ID: f.nextRID, UserID: userID, ClockIn: clockIn}
	f.nextRID++
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeStore) CloseAttendance(_ context.Context, userID int64, clockOut time.Time) (models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open *models.AttendanceRecord
	for _, r := range f.records {
		if r.UserID == userID && r.ClockOut == nil {
			r := r
			if open == nil || r.ClockIn.After(open.ClockIn) {
				open = &r
			}
		}
	}
	if open == nil {
		return models.AttendanceRecord{}, store.ErrNoActiveSession
	}
	open.ClockOut = &clockOut
	f.records[open.ID] = *open
	return *open, nil
}

func (f *fakeStore) ListAttendanceByUser(_ context.Context, userID int64, limit int) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AttendanceRecord, 0)
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.After(out[j].ClockIn) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListAttendanceInRange(_ context.Context, userID int64, from, to time.Time) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AttendanceRecord, 0)
	for _, r := range f.records {
		if r.UserID == userID && !r.ClockIn.Before(from) && !r.ClockIn.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) CountOpenSessions(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.ClockOut == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ClockInTrends(_ context.Context, since time.Time) ([]models.AttendanceTrend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byDay := make(map[string]int)
	for _, r := range f.records {
		if r.ClockIn.Before(since) {
			continue
		}
		byDay[r.ClockIn.Format("2006-01-02")]++
	}
	out := make([]models.AttendanceTrend, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, models.AttendanceTrend{Date: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeStore) RecentActivity(_ context.Context, limit int) ([]models.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]models.AttendanceRecord, 0, len(f.records))
	for _, r := range f.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ClockIn.After(records[j].ClockIn) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]models.ActivityEntry, 0, len(records))
	for _, r := range records {
		entry := models.ActivityFromRecord(r)
		if u, ok := f.users[r.UserID]; ok {
			entry.UserName = u.Name
			entry.UserEmail = u.Email
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

// ============================================================================
// HELPERS DE ARRANQUE Y SEED
// ============================================================================

type testEnv struct {
	app   *fiber.App
	store *fakeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeStore()
	users := cache.NewCache(30*time.Second, time.Minute)
	t.Cleanup(users.Stop)

	app := fiber.New()
	routes.Register(app, routes.Deps{
		Store:  fake,
		Tokens: auth.NewTokens("test-secret-of-at-least-32-chars!!", time.Hour),
		Users:  users,
		Hub:    nil, // sin dashboard en vivo en tests
	})
	return &testEnv{app: app, store: fake}
}

// seedUser inserta un usuario directo en el fake store con password bcrypt.
func (e *testEnv) seedUser(t *testing.T, email, password, name string, isAdmin bool, ptp string, verified bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	user, err := e.store.CreateUser(context.Background(), models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		PTP:          ptp,
		PTPVerified:  verified,
	})
	if err != nil {
		t.Fatalf("seed user error: %v", err)
	}
	return user
}

// seedRecord inserta un registro de asistencia sin pasar por el handler.
func (e *testEnv) seedRecord(t *testing.T, userID int64, clockIn time.Time, clockOut *time.Time) models.AttendanceRecord {
	t.Helper()
	record, err := e.store.CreateAttendance(context.Background(), userID, clockIn)
	if err != nil {
		t.Fatalf("seed record error: %v", err)
	}
	if clockOut != nil {
		record, err = e.store.CloseAttendance(context.Background(), userID, *clockOut)
		if err != nil {
			t.Fatalf("seed close error: %v", err)
		}
	}
	return record
}

// request ejecuta una petición contra la app con headers opcionales.
func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body error: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

// identityHeaders arma las cabeceras x-user-email / x-user-ptp.
func identityHeaders(email, ptp string) map[string]string {
	h := map[string]string{"x-user-email": email}
	if ptp != "" {
		h["x-user-ptp"] = ptp
	}
	return h
}

// decodeBody parsea el cuerpo JSON de la respuesta en out.
func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body error: %v", err)
	}
}
