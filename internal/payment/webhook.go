// AngelaMos | 2026
// webhook.go

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/carterperez-dev/booking-api/internal/booking"
	"github.com/carterperez-dev/booking-api/internal/core"
)

const (
	signatureHeader = "x-webhook-signature"
	timestampHeader = "x-webhook-timestamp"
	maxWebhookBody  = 1 << 20

	// webhookTolerance bounds how far a notification's signed timestamp may
	// drift from the local clock before it is treated as a replay.
	webhookTolerance = 5 * time.Minute
)

// Sign computes the notification signature: base64 HMAC-SHA256 over the
// timestamp followed by the raw body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret, timestamp string, body []byte, signature string) bool {
	if signature == "" || timestamp == "" {
		return false
	}
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// timestampFresh accepts unix seconds or milliseconds within tolerance of
// now.
func timestampFresh(timestamp string, now time.Time, tolerance time.Duration) bool {
	n, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || n <= 0 {
		return false
	}

	sent := time.Unix(n, 0)
	if n > 1e12 {
		sent = time.UnixMilli(n)
	}

	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	return drift <= tolerance
}

// outcomeFor maps gateway payment states onto settlement verdicts. States
// that are not final map to "".
func outcomeFor(gatewayStatus string) booking.PaymentStatus {
	switch gatewayStatus {
	case "SUCCESS":
		return booking.PaymentPaid
	case "FAILED", "USER_DROPPED":
		return booking.PaymentFailed
	default:
		return ""
	}
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	timestamp := r.Header.Get(timestampHeader)
	if !VerifySignature(
		h.webhookSecret,
		timestamp,
		body,
		r.Header.Get(signatureHeader),
	) {
		core.Unauthorized(w, "invalid webhook signature")
		return
	}

	if !timestampFresh(timestamp, h.now(), webhookTolerance) {
		slog.WarnContext(ctx, "rejecting stale payment notification", "timestamp", timestamp)
		core.Unauthorized(w, "stale webhook timestamp")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		core.BadRequest(w, "invalid webhook payload")
		return
	}

	reference := payload.Data.Order.OrderID
	if reference == "" {
		core.BadRequest(w, "order_id is required")
		return
	}

	outcome := outcomeFor(payload.Data.Payment.PaymentStatus)
	if outcome == "" {
		slog.InfoContext(ctx, "ignoring non-final payment notification",
			"order_id", reference,
			"payment_status", payload.Data.Payment.PaymentStatus,
		)
		core.Message(w, "ignored")
		return
	}

	_, err = h.coordinator.Settle(ctx, reference, outcome)
	switch {
	case err == nil:
		core.Message(w, "processed")
	case errors.Is(err, core.ErrInvalidTransition):
		slog.WarnContext(ctx, "payment notification rejected by booking state",
			"order_id", reference,
			"outcome", outcome,
			"error", err,
		)
		core.Message(w, "ignored")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "booking")
	default:
		core.JSONError(w, err)
	}
}
