// AngelaMos | 2026
// repository.go

package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/booking-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByReference(ctx context.Context, reference string) (*Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Booking, error)
	List(ctx context.Context, params ListParams) ([]Booking, int, error)
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

const bookingColumns = `id, owner_id, contact_name, contact_email, scheduled_for,
		       file_url, status, payment_status, payment_reference, version,
		       created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, owner_id, contact_name, contact_email,
		                      scheduled_for, file_url, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING version, created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		b.ID,
		b.OwnerID,
		b.Name,
		b.Email,
		b.Date,
		b.FileURL,
		string(b.Status),
		string(b.PaymentStatus),
	)
	if err := row.Scan(&b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking: %w", core.MapStoreError(err))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b Booking
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, fmt.Errorf("get booking: %w", core.MapStoreError(err))
	}

	return &b, nil
}

func (r *repository) GetByReference(
	ctx context.Context,
	reference string,
) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_reference = $1`

	var b Booking
	if err := r.db.GetContext(ctx, &b, query, reference); err != nil {
		return nil, fmt.Errorf("get booking by reference: %w", core.MapStoreError(err))
	}

	return &b, nil
}

func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE owner_id = $1
		ORDER BY scheduled_for DESC, created_at DESC`

	bookings := []Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, ownerID); err != nil {
		return nil, fmt.Errorf("list bookings for owner: %w", err)
	}

	return bookings, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Booking, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, params.OwnerID)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(params.Status))
		argIdx++
	}

	if params.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argIdx))
		args = append(args, string(params.PaymentStatus))
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM bookings " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		bookingColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	bookings := []Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, total, nil
}

// Update writes b if its version still matches the stored row, then bumps
// the version. A lost race or a deleted row both surface as ErrNotFound.
func (r *repository) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings
		SET contact_name = $3, contact_email = $4, scheduled_for = $5,
		    file_url = $6, status = $7, payment_status = $8,
		    payment_reference = $9, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING updated_at, version`

	row := r.db.QueryRowxContext(ctx, query,
		b.ID,
		b.Version,
		b.Name,
		b.Email,
		b.Date,
		b.FileURL,
		string(b.Status),
		string(b.PaymentStatus),
		b.PaymentReference,
	)
	if err := row.Scan(&b.UpdatedAt, &b.Version); err != nil {
		return fmt.Errorf("update booking: %w", core.MapStoreError(err))
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete booking: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}

	query := `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}

	counts := map[Status]int{
		StatusPending:   0,
		StatusConfirmed: 0,
		StatusCancelled: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
