// AngelaMos | 2026
// session.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/booking-api/internal/authz"
)

const (
	SessionTokenHeader     = "X-Session-Token"
	SessionExpiresAtHeader = "X-Session-Expires-At"
)

type TokenIssuer interface {
	IssueAccessToken(p authz.Principal) (string, time.Time, error)
}

type sessionState struct {
	principal  authz.Principal
	suppressed bool
}

const sessionStateKey contextKey = "session_state"

// RollingSession implements the sliding session: every successful
// authenticated response carries a freshly issued token for the same
// identity and role in X-Session-Token. It must run after Authenticator.
func RollingSession(issuer TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := authz.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			state := &sessionState{principal: principal}
			ctx := context.WithValue(r.Context(), sessionStateKey, state)

			sw := &sessionWriter{
				ResponseWriter: w,
				renew: func(h http.Header) {
					if state.suppressed {
						return
					}
					token, expiresAt, err := issuer.IssueAccessToken(state.principal)
					if err != nil {
						slog.WarnContext(ctx, "session renewal failed",
							"user_id", principal.ID,
							"error", err,
						)
						return
					}
					h.Set(SessionTokenHeader, token)
					h.Set(SessionExpiresAtHeader, expiresAt.UTC().Format(time.RFC3339))
				},
			}

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

// RenewSessionAs makes RollingSession issue the renewed token for p instead
// of the principal that authenticated the request. Password changes use it
// to carry the caller onto the new token version.
func RenewSessionAs(ctx context.Context, p authz.Principal) {
	if state, ok := ctx.Value(sessionStateKey).(*sessionState); ok {
		state.principal = p
	}
}

// SuppressSessionRenewal stops RollingSession from issuing a token for the
// current request. Logout uses it.
func SuppressSessionRenewal(ctx context.Context) {
	if state, ok := ctx.Value(sessionStateKey).(*sessionState); ok {
		state.suppressed = true
	}
}

type sessionWriter struct {
	http.ResponseWriter
	renew       func(http.Header)
	wroteHeader bool
}

func (w *sessionWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if code >= 200 && code < 300 {
			w.renew(w.Header())
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
