// AngelaMos | 2026
// transition.go

package booking

import (
	"fmt"
	"slices"
	"time"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/metrics"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: nil,
}

// pending -> pending is the idempotent re-open of a payment session.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:  {PaymentPending, PaymentFailed},
	PaymentPending: {PaymentPending, PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending},
	PaymentPaid:    nil,
}

func CanTransitionStatus(from, to Status) bool {
	return slices.Contains(statusTransitions[from], to)
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return slices.Contains(paymentTransitions[from], to)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name          *string
	Email         *string
	Date          *time.Time
	FileURL       *string
	Status        *Status
	PaymentStatus *PaymentStatus
	// Override lets an admin move payment status off the transition table,
	// including out of paid.
	Override bool
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Date == nil &&
		p.FileURL == nil && p.Status == nil && p.PaymentStatus == nil
}

func (p Patch) statusChange(b *Booking) bool {
	return p.Status != nil && *p.Status != b.Status
}

func (p Patch) paymentChange(b *Booking) bool {
	return p.PaymentStatus != nil && *p.PaymentStatus != b.PaymentStatus
}

func (p Patch) detailChange() bool {
	return p.Name != nil || p.Email != nil || p.Date != nil || p.FileURL != nil
}

// checkTransition reports whether p may move b to its requested state.
// Setting a field to its current value is not a transition.
func checkTransition(b *Booking, p Patch) error {
	if b.IsCancelled() && !p.IsEmpty() {
		metrics.BookingTransitionsRejectedTotal.WithLabelValues("status").Inc()
		return fmt.Errorf(
			"booking %s is cancelled: %w",
			b.ID,
			core.ErrInvalidTransition,
		)
	}

	if p.statusChange(b) && !CanTransitionStatus(b.Status, *p.Status) {
		metrics.BookingTransitionsRejectedTotal.WithLabelValues("status").Inc()
		return fmt.Errorf(
			"status %s -> %s: %w",
			b.Status,
			*p.Status,
			core.ErrInvalidTransition,
		)
	}

	if p.paymentChange(b) && !p.Override &&
		!CanTransitionPayment(b.PaymentStatus, *p.PaymentStatus) {
		metrics.BookingTransitionsRejectedTotal.WithLabelValues("payment_status").Inc()
		return fmt.Errorf(
			"payment status %s -> %s: %w",
			b.PaymentStatus,
			*p.PaymentStatus,
			core.ErrInvalidTransition,
		)
	}

	return nil
}

// checkPermission applies the role gates on top of a legal patch. Owners may
// edit contact details and cancel while the booking is pending; everything
// else is admin only.
func checkPermission(b *Booking, p Patch, caller authz.Principal) error {
	if caller.IsAdmin() {
		return nil
	}

	if p.Override || p.paymentChange(b) {
		return fmt.Errorf("payment status is admin only: %w", core.ErrForbidden)
	}

	if p.statusChange(b) && *p.Status != StatusCancelled {
		return fmt.Errorf("only admins can confirm bookings: %w", core.ErrForbidden)
	}

	if b.Status == StatusConfirmed && (p.statusChange(b) || p.detailChange()) {
		return fmt.Errorf("booking is confirmed: %w", core.ErrForbidden)
	}

	return nil
}

type change struct {
	axis, from, to string
}

// apply writes p onto b and returns the state changes it made.
func apply(b *Booking, p Patch) []change {
	var changes []change

	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
	if p.Date != nil {
		b.Date = *p.Date
	}
	if p.FileURL != nil {
		b.FileURL = p.FileURL
	}

	if p.statusChange(b) {
		changes = append(changes, change{"status", string(b.Status), string(*p.Status)})
		b.Status = *p.Status
	}

	if p.paymentChange(b) {
		changes = append(changes, change{
			"payment_status",
			string(b.PaymentStatus),
			string(*p.PaymentStatus),
		})
		b.PaymentStatus = *p.PaymentStatus
	}

	return changes
}

func recordTransitions(changes []change) {
	for _, c := range changes {
		metrics.BookingTransitionsTotal.WithLabelValues(c.axis, c.from, c.to).Inc()
	}
}
