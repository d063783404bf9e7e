// AngelaMos | 2026
// authz.go

// Package authz holds the role model and the authorization rules every
// request passes through. Authentication produces a Principal; handlers and
// services ask this package, and only this package, whether that Principal
// may act.
package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/booking-api/internal/core"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("parse role %q: %w", s, core.ErrInvalidInput)
	}
	return r, nil
}

// Principal is the authenticated caller. TokenVersion is the account's
// session generation at issue time; bumping it ends every older session.
type Principal struct {
	ID           string
	Role         Role
	TokenVersion int
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Claims are the verified contents of a session token.
type Claims struct {
	Principal
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type contextKey string

const claimsKey contextKey = "authz_claims"

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

func FromContext(ctx context.Context) (Principal, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return claims.Principal, true
}

// RequireRole fails with core.ErrForbidden unless p holds one of roles.
func RequireRole(p Principal, roles ...Role) error {
	if p.ID == "" {
		return fmt.Errorf("require role: %w", core.ErrUnauthorized)
	}

	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}

	return fmt.Errorf("require role %v: %w", roles, core.ErrForbidden)
}

func RequireAdmin(p Principal) error {
	return RequireRole(p, RoleAdmin)
}

// RequireOwnerOrAdmin is the ownership rule for per-identity resources.
// Admins bypass ownership.
func RequireOwnerOrAdmin(p Principal, ownerID string) error {
	if p.ID == "" {
		return fmt.Errorf("require owner: %w", core.ErrUnauthorized)
	}

	if p.IsAdmin() || (ownerID != "" && p.ID == ownerID) {
		return nil
	}

	return fmt.Errorf("require owner: %w", core.ErrForbidden)
}
