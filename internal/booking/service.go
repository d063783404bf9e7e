// AngelaMos | 2026
// service.go

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/events"
	"github.com/carterperez-dev/booking-api/internal/metrics"
)

const (
	tracerName = "booking"
	casRetries = 3
)

// Service is the booking lifecycle manager. Every operation takes the
// authenticated caller and enforces ownership before touching the store.
type Service struct {
	repo        Repository
	publisher   events.Publisher
	autoConfirm bool
	logger      *slog.Logger
}

func NewService(
	repo Repository,
	publisher events.Publisher,
	cfg config.BookingConfig,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		publisher:   publisher,
		autoConfirm: cfg.AutoConfirmOnPayment,
		logger:      logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	caller authz.Principal,
	req CreateBookingRequest,
) (_ *Booking, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "booking.Create",
		attribute.String("user.id", caller.ID))
	defer func() { core.EndSpan(span, err) }()

	if caller.ID == "" {
		return nil, fmt.Errorf("create booking: %w", core.ErrUnauthorized)
	}

	name := *trimmed(&req.Name)
	if name == "" {
		return nil, fmt.Errorf("create booking: name must not be blank: %w", core.ErrInvalidInput)
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:            uuid.New().String(),
		OwnerID:       caller.ID,
		Name:          name,
		Email:         *lowered(&req.Email),
		Date:          date,
		FileURL:       req.FileURL,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	metrics.BookingsCreatedTotal.Inc()
	s.publish(ctx, events.BookingCreated, caller.ID, b)

	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"owner_id", b.OwnerID,
	)
	return b, nil
}

// Get returns the booking if caller owns it or is an admin.
func (s *Service) Get(
	ctx context.Context,
	caller authz.Principal,
	id string,
) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.RequireOwnerOrAdmin(caller, b.OwnerID); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) ListMine(
	ctx context.Context,
	caller authz.Principal,
) ([]Booking, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("list bookings: %w", core.ErrUnauthorized)
	}

	return s.repo.ListByOwner(ctx, caller.ID)
}

func (s *Service) ListAll(
	ctx context.Context,
	caller authz.Principal,
	params ListParams,
) ([]Booking, int, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, 0, err
	}

	return s.repo.List(ctx, params)
}

// Update applies patch on behalf of caller. Checks run in a fixed order:
// existence, ownership, transition legality, then the role gates on the
// requested transition.
func (s *Service) Update(
	ctx context.Context,
	caller authz.Principal,
	id string,
	patch Patch,
) (_ *Booking, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "booking.Update",
		attribute.String("booking.id", id),
		attribute.String("user.id", caller.ID))
	defer func() { core.EndSpan(span, err) }()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.RequireOwnerOrAdmin(caller, b.OwnerID); err != nil {
		return nil, err
	}

	if err := checkTransition(b, patch); err != nil {
		return nil, err
	}

	if err := checkPermission(b, patch, caller); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return b, nil
	}

	changes := apply(b, patch)

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	recordTransitions(changes)
	s.publish(ctx, events.BookingUpdated, caller.ID, b)

	if len(changes) > 0 {
		s.logger.InfoContext(ctx, "booking state changed",
			"booking_id", b.ID,
			"status", b.Status,
			"payment_status", b.PaymentStatus,
			"actor_id", caller.ID,
			"override", patch.Override,
		)
	}

	return b, nil
}

// Delete removes the booking regardless of its state.
func (s *Service) Delete(
	ctx context.Context,
	caller authz.Principal,
	id string,
) (err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "booking.Delete",
		attribute.String("booking.id", id))
	defer func() { core.EndSpan(span, err) }()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authz.RequireOwnerOrAdmin(caller, b.OwnerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.BookingDeleted, caller.ID, b)

	s.logger.InfoContext(ctx, "booking deleted",
		"booking_id", id,
		"actor_id", caller.ID,
	)
	return nil
}

// mutate reloads and rewrites a booking until the versioned update lands.
// Used by system-driven transitions that are not tied to a caller's view
// of the row. An edit returning nil changes skips the write.
func (s *Service) mutate(
	ctx context.Context,
	load func(context.Context) (*Booking, error),
	edit func(*Booking) ([]change, error),
) (*Booking, []change, error) {
	for attempt := 1; ; attempt++ {
		b, err := load(ctx)
		if err != nil {
			return nil, nil, err
		}

		changes, err := edit(b)
		if err != nil {
			return nil, nil, err
		}
		if changes == nil {
			return b, nil, nil
		}

		err = s.repo.Update(ctx, b)
		if err == nil {
			return b, changes, nil
		}
		if !errors.Is(err, core.ErrNotFound) || attempt == casRetries {
			return nil, nil, err
		}

		s.logger.DebugContext(ctx, "booking version moved, retrying",
			"booking_id", b.ID,
			"attempt", attempt,
		)
	}
}

func (s *Service) publish(
	ctx context.Context,
	t events.Type,
	actorID string,
	b *Booking,
) {
	err := s.publisher.Publish(ctx, events.New(t, actorID, ToResponse(b)))
	if err != nil {
		s.logger.WarnContext(ctx, "publish booking event",
			"event", t,
			"booking_id", b.ID,
			"error", err,
		)
	}
}
