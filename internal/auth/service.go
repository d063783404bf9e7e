// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/metrics"
)

const tracerName = "auth"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrAccountDisabled    = errors.New("account disabled")
)

// UserInfo is the slice of an identity the credential flows need.
type UserInfo struct {
	ID           string
	Email        string
	Name         string
	Phone        *string
	PasswordHash string
	Role         authz.Role
	Active       bool
	TokenVersion int
	CreatedAt    time.Time
}

type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	Role         authz.Role
}

// UserProvider is the credential store as seen from auth.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, userID string) (int, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	jwt     *JWTManager
	users   UserProvider
	revoker TokenRevoker
	logger  *slog.Logger
}

func NewService(
	jwt *JWTManager,
	users UserProvider,
	revoker TokenRevoker,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwt:     jwt,
		users:   users,
		revoker: revoker,
		logger:  logger,
	}
}

func toPrincipal(u *UserInfo) authz.Principal {
	return authz.Principal{ID: u.ID, Role: u.Role, TokenVersion: u.TokenVersion}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an identity with role user. It never issues a token.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (_ *UserResponse, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.Register")
	defer func() { core.EndSpan(span, err) }()

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:        NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		Role:         authz.RoleUser,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, ErrEmailExists
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	resp := toUserResponse(user)
	return &resp, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password fail with the same ErrInvalidCredentials and the same
// amount of hashing work.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (_ *TokenResponse, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.Login")
	defer func() { core.EndSpan(span, err) }()

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "disabled").Inc()
		return nil, ErrAccountDisabled
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	token, expiresAt, err := s.jwt.CreateAccessToken(toPrincipal(user))
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("create access token: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	span.SetAttributes(attribute.String("user.id", user.ID))

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user),
	}, nil
}

// ChangePassword fails with core.ErrForbidden when currentPassword does not
// match the stored hash. On success every session issued before the change
// stops authenticating; the returned principal carries the new token
// version so the caller's own session can continue.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) (_ authz.Principal, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.ChangePassword")
	defer func() { core.EndSpan(span, err) }()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("change_password", "error").Inc()
		return authz.Principal{}, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		metrics.AuthAttemptsTotal.WithLabelValues("change_password", "invalid_credentials").Inc()
		return authz.Principal{}, fmt.Errorf(
			"change password: current password mismatch: %w",
			core.ErrForbidden,
		)
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return authz.Principal{}, fmt.Errorf("update password: %w", err)
	}

	version, err := s.users.IncrementTokenVersion(ctx, userID)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("end sessions: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("change_password", "success").Inc()
	s.logger.InfoContext(ctx, "password changed", "user_id", userID)

	user.TokenVersion = version
	return toPrincipal(user), nil
}

// Logout ends the caller's session: the presented token is revoked and the
// account's token version is bumped so tokens rolled earlier in the same
// session stop authenticating too. A removed account has nothing to bump.
func (s *Service) Logout(ctx context.Context, claims *authz.Claims) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	if _, err := s.users.IncrementTokenVersion(ctx, claims.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("end sessions: %w", err)
	}

	return nil
}

// VerifyAccessToken is the Authorization Guard's verifier. Signature and
// expiry are checked first, then the revocation list, then the account
// itself: a removed or disabled identity, one whose role changed since
// issue, or a token older than the account's token version no longer
// authenticates. A Redis outage is logged and skipped.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*authz.Claims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "revocation check unavailable",
				"user_id", claims.ID,
				"error", err,
			)
		case revoked:
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
		}
	}

	user, err := s.users.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: account removed: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("verify token: load account: %w", err)
	}

	if !user.Active || user.Role != claims.Role {
		return nil, fmt.Errorf("verify token: account changed: %w", core.ErrTokenRevoked)
	}

	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: session ended: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}
