// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/booking-api/internal/auth"
	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/booking"
	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/metrics"
)

const tracerName = "payment"

type BookingLifecycle interface {
	Get(ctx context.Context, caller authz.Principal, id string) (*booking.Booking, error)
	RecordPaymentSession(ctx context.Context, actorID, id, reference string) (*booking.Booking, error)
	SettlePayment(ctx context.Context, reference string, outcome booking.PaymentStatus) (*booking.Booking, error)
}

type UserLookup interface {
	Lookup(ctx context.Context, id string) (*auth.UserInfo, error)
}

// Coordinator opens gateway checkout sessions for bookings and applies the
// gateway's verdicts back onto them.
type Coordinator struct {
	bookings     BookingLifecycle
	users        UserLookup
	gateway      Gateway
	sessions     *SessionStore
	currency     string
	defaultPhone string
	sessionTTL   time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewCoordinator(
	bookings BookingLifecycle,
	users UserLookup,
	gateway Gateway,
	sessions *SessionStore,
	cfg config.PaymentConfig,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		bookings:     bookings,
		users:        users,
		gateway:      gateway,
		sessions:     sessions,
		currency:     cfg.Currency,
		defaultPhone: cfg.DefaultPhone,
		sessionTTL:   cfg.SessionTTL,
		now:          time.Now,
		logger:       logger,
	}
}

// OpenSession opens a checkout session for the booking and moves its
// payment status to pending. A session already open for a pending booking
// is returned as is when it was opened for the same amount; a different
// amount opens a new order.
func (c *Coordinator) OpenSession(
	ctx context.Context,
	caller authz.Principal,
	req ProcessPaymentRequest,
) (_ *SessionResponse, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "payment.OpenSession",
		attribute.String("booking.id", req.BookingID),
		attribute.String("user.id", caller.ID))
	defer func() { core.EndSpan(span, err) }()

	b, err := c.payableBooking(ctx, caller, req.BookingID)
	if err != nil {
		return nil, err
	}

	if resp := c.cachedSession(ctx, b, req.Amount); resp != nil {
		metrics.PaymentSessionsTotal.WithLabelValues("reused").Inc()
		return resp, nil
	}

	release, ok, err := c.sessions.Lock(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.PaymentSessionsTotal.WithLabelValues("locked").Inc()
		return nil, fmt.Errorf("payment for booking %s already in progress: %w", b.ID, core.ErrConflict)
	}
	defer release(context.WithoutCancel(ctx))

	// Another open may have finished between the first read and the lock.
	b, err = c.payableBooking(ctx, caller, b.ID)
	if err != nil {
		return nil, err
	}
	if resp := c.cachedSession(ctx, b, req.Amount); resp != nil {
		metrics.PaymentSessionsTotal.WithLabelValues("reused").Inc()
		return resp, nil
	}

	order := Order{
		ID:            OrderReference(b.ID, c.now()),
		Amount:        req.Amount,
		Currency:      c.currency,
		CustomerID:    b.OwnerID,
		CustomerEmail: b.Email,
		CustomerPhone: c.customerPhone(ctx, b.OwnerID),
	}

	sessionID, err := c.gateway.CreateOrder(ctx, order)
	if err != nil {
		metrics.PaymentSessionsTotal.WithLabelValues("gateway_error").Inc()
		c.logger.ErrorContext(ctx, "payment gateway call failed",
			"booking_id", b.ID,
			"order_id", order.ID,
			"error", err,
		)
		return nil, err
	}

	updated, err := c.bookings.RecordPaymentSession(ctx, caller.ID, b.ID, order.ID)
	if err != nil {
		return nil, err
	}

	sess := Session{ID: sessionID, OrderID: order.ID, Amount: order.Amount}
	if err := c.sessions.Put(ctx, b.ID, sess, c.sessionTTL); err != nil {
		c.logger.WarnContext(ctx, "cache payment session", "booking_id", b.ID, "error", err)
	}

	metrics.PaymentSessionsTotal.WithLabelValues("opened").Inc()
	c.logger.InfoContext(ctx, "payment session opened",
		"booking_id", b.ID,
		"order_id", order.ID,
		"actor_id", caller.ID,
	)

	return &SessionResponse{
		PaymentSessionID: sessionID,
		OrderID:          order.ID,
		BookingID:        updated.ID,
		PaymentStatus:    string(updated.PaymentStatus),
	}, nil
}

// Settle applies a gateway verdict to the booking holding reference. The
// cached session is dropped once the payment leaves pending.
func (c *Coordinator) Settle(
	ctx context.Context,
	reference string,
	outcome booking.PaymentStatus,
) (*booking.Booking, error) {
	b, err := c.bookings.SettlePayment(ctx, reference, outcome)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Forget(ctx, b.ID); err != nil {
		c.logger.WarnContext(ctx, "drop payment session", "booking_id", b.ID, "error", err)
	}

	return b, nil
}

func (c *Coordinator) payableBooking(
	ctx context.Context,
	caller authz.Principal,
	id string,
) (*booking.Booking, error) {
	b, err := c.bookings.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckPayable(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Coordinator) cachedSession(
	ctx context.Context,
	b *booking.Booking,
	amount float64,
) *SessionResponse {
	if b.PaymentStatus != booking.PaymentPending || b.PaymentReference == nil {
		return nil
	}

	sess, err := c.sessions.Get(ctx, b.ID)
	if err != nil {
		c.logger.WarnContext(ctx, "read payment session", "booking_id", b.ID, "error", err)
		return nil
	}
	if sess == nil || sess.OrderID != *b.PaymentReference || sess.Amount != amount {
		return nil
	}

	return &SessionResponse{
		PaymentSessionID: sess.ID,
		OrderID:          sess.OrderID,
		BookingID:        b.ID,
		PaymentStatus:    string(b.PaymentStatus),
		Reused:           true,
	}
}

func (c *Coordinator) customerPhone(ctx context.Context, ownerID string) string {
	if c.users == nil {
		return c.defaultPhone
	}

	owner, err := c.users.Lookup(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			c.logger.WarnContext(ctx, "lookup booking owner", "owner_id", ownerID, "error", err)
		}
		return c.defaultPhone
	}

	if owner.Phone != nil && *owner.Phone != "" {
		return *owner.Phone
	}
	return c.defaultPhone
}
