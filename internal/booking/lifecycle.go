// AngelaMos | 2026
// lifecycle.go

package booking

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/events"
)

// CheckPayable reports whether a new payment session may be opened for b.
func CheckPayable(b *Booking) error {
	if b.IsCancelled() {
		return fmt.Errorf("booking %s is cancelled: %w", b.ID, core.ErrInvalidTransition)
	}
	if !CanTransitionPayment(b.PaymentStatus, PaymentPending) {
		return fmt.Errorf(
			"payment status %s -> %s: %w",
			b.PaymentStatus,
			PaymentPending,
			core.ErrInvalidTransition,
		)
	}
	return nil
}

// RecordPaymentSession moves payment status to pending and attaches the
// gateway order reference. Reopening a pending session replaces the
// reference.
func (s *Service) RecordPaymentSession(
	ctx context.Context,
	actorID, id, reference string,
) (_ *Booking, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "booking.RecordPaymentSession",
		attribute.String("booking.id", id),
		attribute.String("payment.reference", reference))
	defer func() { core.EndSpan(span, err) }()

	b, changes, err := s.mutate(ctx,
		func(ctx context.Context) (*Booking, error) { return s.repo.GetByID(ctx, id) },
		func(b *Booking) ([]change, error) {
			if err := CheckPayable(b); err != nil {
				return nil, err
			}

			to := PaymentPending
			changes := apply(b, Patch{PaymentStatus: &to})
			b.PaymentReference = &reference
			if changes == nil {
				changes = []change{}
			}
			return changes, nil
		},
	)
	if err != nil {
		return nil, err
	}

	recordTransitions(changes)
	s.publish(ctx, events.BookingPaymentOpened, actorID, b)
	return b, nil
}

// SettlePayment applies the gateway's verdict for the order reference.
// Redelivered verdicts are no-ops. With auto confirmation enabled a paid
// pending booking is confirmed in the same write.
func (s *Service) SettlePayment(
	ctx context.Context,
	reference string,
	outcome PaymentStatus,
) (_ *Booking, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "booking.SettlePayment",
		attribute.String("payment.reference", reference),
		attribute.String("payment.outcome", string(outcome)))
	defer func() { core.EndSpan(span, err) }()

	if outcome != PaymentPaid && outcome != PaymentFailed {
		return nil, fmt.Errorf("settle payment: outcome %q: %w", outcome, core.ErrInvalidInput)
	}

	b, changes, err := s.mutate(ctx,
		func(ctx context.Context) (*Booking, error) {
			return s.repo.GetByReference(ctx, reference)
		},
		func(b *Booking) ([]change, error) {
			if b.PaymentStatus == outcome {
				return nil, nil
			}

			patch := Patch{PaymentStatus: &outcome}
			if s.autoConfirm && outcome == PaymentPaid && b.Status == StatusPending {
				confirmed := StatusConfirmed
				patch.Status = &confirmed
			}

			if err := checkTransition(b, patch); err != nil {
				return nil, err
			}

			return apply(b, patch), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if changes == nil {
		s.logger.InfoContext(ctx, "payment verdict already applied",
			"booking_id", b.ID,
			"payment_status", b.PaymentStatus,
		)
		return b, nil
	}

	recordTransitions(changes)
	s.publish(ctx, events.BookingPaymentSettled, "", b)

	s.logger.InfoContext(ctx, "payment settled",
		"booking_id", b.ID,
		"payment_status", b.PaymentStatus,
		"status", b.Status,
	)
	return b, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
