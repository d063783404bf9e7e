// AngelaMos | 2026
// entity.go

package booking

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/booking-api/internal/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q: %w", s, core.ErrInvalidInput)
	}
	return status, nil
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown payment status %q: %w", s, core.ErrInvalidInput)
	}
	return status, nil
}

type Booking struct {
	ID               string        `db:"id"`
	OwnerID          string        `db:"owner_id"`
	Name             string        `db:"contact_name"`
	Email            string        `db:"contact_email"`
	Date             time.Time     `db:"scheduled_for"`
	FileURL          *string       `db:"file_url"`
	Status           Status        `db:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status"`
	PaymentReference *string       `db:"payment_reference"`
	Version          int           `db:"version"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

func (b *Booking) IsOwnedBy(userID string) bool {
	return b.OwnerID == userID
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}
