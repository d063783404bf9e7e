// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
)

const (
	roleClaim         = "role"
	tokenVersionClaim = "token_version"
)

// JWTManager is the token service. Tokens are HS256 JWTs signed with the
// configured secret; verification is a pure function of secret, token and
// clock.
type JWTManager struct {
	key    jwk.Key
	config config.JWTConfig
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if cfg.AccessTokenExpire <= 0 {
		return nil, errors.New("jwt access token lifetime must be positive")
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &JWTManager{
		key:    key,
		config: cfg,
		now:    time.Now,
	}, nil
}

// CreateAccessToken issues a token for p and returns it with its expiry.
func (m *JWTManager) CreateAccessToken(
	p authz.Principal,
) (string, time.Time, error) {
	if p.ID == "" || !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf(
			"create token: invalid principal: %w",
			core.ErrInvalidInput,
		)
	}

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.config.AccessTokenExpire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(p.ID).
		IssuedAt(now).
		Expiration(expiresAt).
		NotBefore(now).
		Claim(roleClaim, p.Role.String()).
		Claim(tokenVersionClaim, p.TokenVersion).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// IssueAccessToken satisfies middleware.TokenIssuer for rolling sessions.
func (m *JWTManager) IssueAccessToken(
	p authz.Principal,
) (string, time.Time, error) {
	return m.CreateAccessToken(p)
}

// VerifyAccessToken checks signature, issuer, audience and time claims.
// Tampered or malformed tokens fail with core.ErrTokenInvalid and expired
// ones with core.ErrTokenExpired.
func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*authz.Claims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	jti, ok := token.JwtID()
	if !ok || jti == "" {
		return nil, fmt.Errorf(
			"verify token: missing jti: %w",
			core.ErrTokenInvalid,
		)
	}

	var roleStr string
	if err := token.Get(roleClaim, &roleStr); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing role claim: %w",
			core.ErrTokenInvalid,
		)
	}

	role, err := authz.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf(
			"verify token: %v: %w",
			err,
			core.ErrTokenInvalid,
		)
	}

	var version float64
	if err := token.Get(tokenVersionClaim, &version); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing token_version claim: %w",
			core.ErrTokenInvalid,
		)
	}

	issuedAt, _ := token.IssuedAt()
	expiresAt, _ := token.Expiration()

	return &authz.Claims{
		Principal: authz.Principal{
			ID:           subject,
			Role:         role,
			TokenVersion: int(version),
		},
		TokenID:   jti,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
