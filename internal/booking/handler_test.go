// AngelaMos | 2026
// handler_test.go

package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
)

// memRepo is an in-memory Repository with the same versioning rules as
// the SQL implementation.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]Booking
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]Booking{}}
}

func (m *memRepo) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	b.Version, b.CreatedAt, b.UpdatedAt = 1, now, now
	m.rows[b.ID] = *b
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	return &b, nil
}

func (m *memRepo) GetByReference(_ context.Context, ref string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.PaymentReference != nil && *b.PaymentReference == ref {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("get booking by reference: %w", core.ErrNotFound)
}

func (m *memRepo) ListByOwner(_ context.Context, ownerID string) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Booking{}
	for _, b := range m.rows {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context, p ListParams) ([]Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Booking{}
	for _, b := range m.rows {
		if p.Status != "" && b.Status != p.Status {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[b.ID]
	if !ok || stored.Version != b.Version {
		return fmt.Errorf("update booking: %w", core.ErrNotFound)
	}
	b.Version++
	b.UpdatedAt = time.Now()
	m.rows[b.ID] = *b
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("delete booking: %w", core.ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) CountByStatus(context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[Status]int{}
	for _, b := range m.rows {
		counts[b.Status]++
	}
	return counts, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var (
	userA = authz.Principal{ID: "11111111-1111-1111-1111-111111111111", Role: authz.RoleUser}
	userB = authz.Principal{ID: "33333333-3333-3333-3333-333333333333", Role: authz.RoleUser}
	admin = authz.Principal{ID: "44444444-4444-4444-4444-444444444444", Role: authz.RoleAdmin}
)

func passThrough(next http.Handler) http.Handler { return next }

func newTestRouter() http.Handler {
	svc := NewService(newMemRepo(), nil, config.BookingConfig{}, nil)
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, passThrough, nil)
	return r
}

func doJSON(
	t *testing.T,
	h http.Handler,
	method, path string,
	caller authz.Principal,
	body any,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller.ID != "" {
		claims := &authz.Claims{Principal: caller, TokenID: "jti-" + caller.ID}
		req = req.WithContext(authz.WithClaims(req.Context(), claims))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createBooking(t *testing.T, h http.Handler, caller authz.Principal) BookingResponse {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/bookings/", caller, map[string]string{
		"name": "A", "email": "a@x.com", "date": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestBookingOwnershipScenario(t *testing.T) {
	h := newTestRouter()

	created := createBooking(t, h, userA)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "unpaid", created.PaymentStatus)
	assert.Equal(t, userA.ID, created.OwnerID)

	path := "/bookings/" + created.ID

	rec, env := doJSON(t, h, http.MethodDelete, path, userB, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = doJSON(t, h, http.MethodGet, path, userB, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = doJSON(t, h, http.MethodDelete, path, userA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "booking deleted", env.Message)

	rec, _ = doJSON(t, h, http.MethodGet, path, userA, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newTestRouter()

	rec, env := doJSON(t, h, http.MethodPost, "/bookings/", userA, map[string]string{
		"name": "A", "email": "not-an-email", "date": "2025-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "email")

	rec, env = doJSON(t, h, http.MethodPost, "/bookings/", userA, map[string]string{
		"name": "A", "email": "a@x.com", "date": "tomorrow",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "date")

	rec, env = doJSON(t, h, http.MethodPost, "/bookings/", userA, map[string]string{
		"name": "   ", "email": "a@x.com", "date": "2025-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "name")
}

func TestUpdateBookingRejectsBlankName(t *testing.T) {
	h := newTestRouter()
	created := createBooking(t, h, userA)
	path := "/bookings/" + created.ID

	rec, env := doJSON(t, h, http.MethodPut, path, userA, map[string]string{"name": "  \t "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "name")

	rec, env = doJSON(t, h, http.MethodPut, path, userA, map[string]string{"name": "  Bob  "})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "Bob", resp.Name)
}

func TestUpdateBookingHandler(t *testing.T) {
	h := newTestRouter()
	created := createBooking(t, h, userA)
	path := "/bookings/" + created.ID

	rec, _ := doJSON(t, h, http.MethodPut, path, userA, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := doJSON(t, h, http.MethodPut, path, admin, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, 2, resp.Version)

	rec, env = doJSON(t, h, http.MethodPut, path, admin, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	rec, _ = doJSON(t, h, http.MethodPut, path, admin, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedBookingIDIsNotFound(t *testing.T) {
	h := newTestRouter()

	rec, env := doJSON(t, h, http.MethodGet, "/bookings/not-a-uuid", userA, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestListBookingsHandlers(t *testing.T) {
	h := newTestRouter()
	createBooking(t, h, userA)
	createBooking(t, h, userA)
	createBooking(t, h, userB)

	rec, env := doJSON(t, h, http.MethodGet, "/bookings/mine", userA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 2)

	rec, _ = doJSON(t, h, http.MethodGet, "/bookings/", userA, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = doJSON(t, h, http.MethodGet, "/bookings/?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 3)

	rec, _ = doJSON(t, h, http.MethodGet, "/bookings/?status=archived", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodGet, "/bookings/?owner_id=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
