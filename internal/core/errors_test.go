// AngelaMos | 2026
// errors_test.go

package core

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStoreError(t *testing.T) {
	assert.NoError(t, MapStoreError(nil))
	assert.ErrorIs(t, MapStoreError(sql.ErrNoRows), ErrNotFound)

	dup := MapStoreError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_active_key"})
	assert.ErrorIs(t, dup, ErrDuplicateKey)
	assert.Contains(t, dup.Error(), "users_email_active_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, MapStoreError(other))

	fk := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, MapStoreError(fk), ErrDuplicateKey)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("x: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("x: %w", ErrUnauthorized), http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("x: %w", ErrDuplicateKey), http.StatusConflict, "DUPLICATE"},
		{fmt.Errorf("x: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{fmt.Errorf("x: %w", ErrPaymentGateway), http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR"},
		{fmt.Errorf("x: %w", ErrTokenExpired), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{fmt.Errorf("x: %w", ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			appErr, ok := ToAppError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	_, ok := ToAppError(errors.New("boom"))
	assert.False(t, ok)
}

func TestJSONErrorHidesInternalFaults(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, errors.New("pq: relation bookings does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 2, 10, 21)

	var body struct {
		Meta PageMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, 21, body.Meta.Total)
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "payment:session:b1", RedisKey("payment:session", "b1"))
}
