// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
)

type Handler struct {
	coordinator   *Coordinator
	webhookSecret string
	validator     *validator.Validate
	now           func() time.Time
}

func NewHandler(coordinator *Coordinator, webhookSecret string) *Handler {
	return &Handler{
		coordinator:   coordinator,
		webhookSecret: webhookSecret,
		validator:     core.NewValidator(),
		now:           time.Now,
	}
}

// RegisterRoutes mounts /payments. The webhook is only exposed when a
// signing secret is configured.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, session func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			if session != nil {
				r.Use(session)
			}
			r.Post("/process", h.Process)
		})

		if h.webhookSecret != "" {
			r.Post("/webhook", h.Webhook)
		}
	})
}

func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	var req ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.coordinator.OpenSession(r.Context(), principal, req)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	core.OK(w, resp)
}

func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "booking")
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(err.Error()))
	case errors.Is(err, core.ErrConflict):
		core.JSONError(w, core.ConflictError("payment already in progress"))
	default:
		core.JSONError(w, err)
	}
}
