// AngelaMos | 2026
// handler.go

package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, session func(http.Handler) http.Handler,
) {
	r.Route("/bookings", func(r chi.Router) {
		r.Use(authenticator)
		if session != nil {
			r.Use(session)
		}

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/mine", h.ListMine)
		r.Get("/{bookingID}", h.Get)
		r.Put("/{bookingID}", h.Update)
		r.Delete("/{bookingID}", h.Delete)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Normalize()

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	b, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.Created(w, ToResponse(b))
}

// List is the admin view over every booking.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())
	q := r.URL.Query()

	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		OwnerID:  q.Get("owner_id"),
	}

	if raw := q.Get("status"); raw != "" {
		s, err := ParseStatus(raw)
		if err != nil {
			core.BadRequest(w, "status must be one of [pending confirmed cancelled]")
			return
		}
		params.Status = s
	}

	if raw := q.Get("payment_status"); raw != "" {
		ps, err := ParsePaymentStatus(raw)
		if err != nil {
			core.BadRequest(w, "payment_status must be one of [unpaid pending paid failed]")
			return
		}
		params.PaymentStatus = ps
	}

	if params.OwnerID != "" && uuid.Validate(params.OwnerID) != nil {
		core.BadRequest(w, "owner_id must be a valid UUID")
		return
	}

	params.Normalize()

	bookings, total, err := h.service.ListAll(r.Context(), principal, params)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.Paginated(w, ToResponseList(bookings), params.Page, params.PageSize, total)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	bookings, err := h.service.ListMine(r.Context(), principal)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.OK(w, ToResponseList(bookings))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.OK(w, ToResponse(b))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.Normalize()

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		writeBookingError(w, err)
		return
	}

	b, err := h.service.Update(r.Context(), principal, id, patch)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.OK(w, ToResponse(b))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.FromContext(r.Context())

	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		writeBookingError(w, err)
		return
	}

	core.Message(w, "booking deleted")
}

// bookingID reads the path id. Malformed ids cannot name a booking, so they
// are reported as not found.
func bookingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "bookingID")
	if uuid.Validate(id) != nil {
		core.NotFound(w, "booking")
		return "", false
	}
	return id, true
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "booking")
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(err.Error()))
	default:
		core.JSONError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
