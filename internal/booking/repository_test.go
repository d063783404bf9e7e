// AngelaMos | 2026
// repository_test.go

package booking

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/booking-api/internal/core"
)

var bookingRowColumns = []string{
	"id", "owner_id", "contact_name", "contact_email", "scheduled_for",
	"file_url", "status", "payment_status", "payment_reference", "version",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(bookingUUID, "owner-1", "A", "a@x.com", sqlmock.AnyArg(),
			sqlmock.AnyArg(), "pending", "unpaid").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).
			AddRow(1, now, now))

	b := existing(StatusPending, PaymentUnpaid)
	b.Version = 0
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, 1, b.Version)
	assert.Equal(t, now, b.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs(bookingUUID).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			bookingUUID, "owner-1", "A", "a@x.com", now,
			nil, "confirmed", "paid", "order_abc", 3, now, now,
		))

	b, err := repo.GetByID(context.Background(), bookingUUID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
	assert.Nil(t, b.FileURL)
	require.NotNil(t, b.PaymentReference)
	assert.Equal(t, "order_abc", *b.PaymentReference)
	assert.Equal(t, 3, b.Version)
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), bookingUUID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND version = $2")).
		WithArgs(bookingUUID, 1, "A", "a@x.com", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"confirmed", "unpaid", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, 2))

	b := existing(StatusConfirmed, PaymentUnpaid)
	require.NoError(t, repo.Update(context.Background(), b))
	assert.Equal(t, 2, b.Version)
	assert.Equal(t, now, b.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStaleVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	err := repo.Update(context.Background(), existing(StatusPending, PaymentUnpaid))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM bookings WHERE status = $1 AND payment_status = $2")).
		WithArgs("pending", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs("pending", "pending", 10, 10).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			bookingUUID, "owner-1", "A", "a@x.com", now,
			nil, "pending", "pending", "order_abc", 2, now, now,
		))

	bookings, total, err := repo.List(context.Background(), ListParams{
		Page:          2,
		PageSize:      10,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	assert.Len(t, bookings, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).
		WithArgs(bookingUUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).
		WithArgs(bookingUUID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), bookingUUID))
	assert.ErrorIs(t, repo.Delete(context.Background(), bookingUUID), core.ErrNotFound)
}

func TestRepositoryCountByStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("cancelled", 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{
		StatusPending:   4,
		StatusConfirmed: 0,
		StatusCancelled: 1,
	}, counts)
}
