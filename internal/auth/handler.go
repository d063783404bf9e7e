// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/middleware"
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

// RegisterRoutes mounts /auth. session wraps the authenticated routes and
// may be nil when rolling sessions are disabled.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, session func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			if session != nil {
				r.Use(session)
			}
			r.Put("/change-password", h.ChangePassword)
			r.Post("/logout", h.Logout)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.JSONError(w, err)
		return
	}

	core.Created(w, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(w, core.NewAppError(
				core.ErrUnauthorized,
				"invalid email or password",
				http.StatusUnauthorized,
				"INVALID_CREDENTIALS",
			))
		case errors.Is(err, ErrAccountDisabled):
			core.JSONError(w, core.NewAppError(
				core.ErrForbidden,
				"account is disabled",
				http.StatusForbidden,
				"ACCOUNT_DISABLED",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.FromContext(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	renewed, err := h.service.ChangePassword(
		r.Context(),
		principal.ID,
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "current password is incorrect")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		default:
			core.JSONError(w, err)
		}
		return
	}

	middleware.RenewSessionAs(r.Context(), renewed)
	core.Message(w, "password updated")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := authz.ClaimsFromContext(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	middleware.SuppressSessionRenewal(r.Context())

	if err := h.service.Logout(r.Context(), claims); err != nil {
		core.JSONError(w, err)
		return
	}

	core.Message(w, "logged out")
}
