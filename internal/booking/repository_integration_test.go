// AngelaMos | 2026
// repository_integration_test.go

//go:build integration

package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carterperez-dev/booking-api/internal/core"
)

func setupPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("bookings_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = core.Migrate(dsn)
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func insertOwner(t *testing.T, db *sqlx.DB) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO users (id, email, password_hash, name) VALUES ($1, $2, 'x', 'Owner')`,
		id, id+"@example.com",
	)
	require.NoError(t, err)
	return id
}

func TestRepositoryLifecyclePostgres(t *testing.T) {
	db := setupPostgres(t)
	repo := NewRepository(db)
	ctx := context.Background()
	ownerID := insertOwner(t, db)

	b := &Booking{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Name:          "A",
		Email:         "a@x.com",
		Date:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
	}
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, 1, b.Version)

	stale := *b

	ref := "order_" + b.ID
	b.PaymentStatus = PaymentPending
	b.PaymentReference = &ref
	require.NoError(t, repo.Update(ctx, b))
	assert.Equal(t, 2, b.Version)

	stale.Status = StatusCancelled
	assert.ErrorIs(t, repo.Update(ctx, &stale), core.ErrNotFound)

	found, err := repo.GetByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)
	assert.Equal(t, StatusPending, found.Status)

	other := &Booking{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Name:          "B",
		Email:         "b@x.com",
		Date:          time.Now().UTC(),
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
	}
	require.NoError(t, repo.Create(ctx, other))
	other.PaymentReference = &ref
	assert.ErrorIs(t, repo.Update(ctx, other), core.ErrDuplicateKey)

	mine, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[StatusPending])

	require.NoError(t, repo.Delete(ctx, b.ID))
	_, err = repo.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
