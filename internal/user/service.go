// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/booking-api/internal/auth"
	"github.com/carterperez-dev/booking-api/internal/authz"
	"github.com/carterperez-dev/booking-api/internal/core"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	u auth.NewUser,
) (*auth.UserInfo, error) {
	role := u.Role
	if role == "" {
		role = authz.RoleUser
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        auth.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Phone:        u.Phone,
		Role:         role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) (int, error) {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

// CreateUser is the explicit admin-creation path: the caller must be an
// admin and may pick the new identity's role.
func (s *Service) CreateUser(
	ctx context.Context,
	caller authz.Principal,
	req CreateUserRequest,
) (*User, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}

	role := authz.RoleUser
	if req.Role != "" {
		parsed, err := authz.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        auth.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		Role:         role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created by admin",
		"user_id", user.ID,
		"role", user.Role,
		"admin_id", caller.ID,
	)
	return user, nil
}

// EnsureAdmin makes sure an admin identity with email exists. It is run
// at startup for the configured bootstrap account.
func (s *Service) EnsureAdmin(
	ctx context.Context,
	email, password, name string,
) (*User, error) {
	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        auth.NormalizeEmail(email),
		PasswordHash: hash,
		Name:         name,
	}

	if err := s.repo.UpsertAdmin(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateUser applies an admin's edits to id. Like deletion, another admin
// may not be deactivated.
func (s *Service) UpdateUser(
	ctx context.Context,
	caller authz.Principal,
	id string,
	req AdminUpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Active != nil && !*req.Active && user.IsAdmin() && caller.ID != user.ID {
		return nil, fmt.Errorf("cannot deactivate admin users: %w", core.ErrForbidden)
	}

	return s.apply(ctx, user, req)
}

func (s *Service) apply(
	ctx context.Context,
	user *User,
	req AdminUpdateUserRequest,
) (*User, error) {
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = auth.NormalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	caller authz.Principal,
	id string,
	role authz.Role,
) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if caller.ID == id && role != authz.RoleAdmin {
		return nil, fmt.Errorf("update role: cannot demote yourself: %w", core.ErrForbidden)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Role = role

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role changed",
		"user_id", user.ID,
		"role", role,
		"admin_id", caller.ID,
	)
	return user, nil
}

// DeleteUser soft deletes target. Admins may delete regular identities and
// themselves, never another admin.
func (s *Service) DeleteUser(
	ctx context.Context,
	caller authz.Principal,
	targetID string,
) error {
	if caller.ID != targetID {
		if err := authz.RequireAdmin(caller); err != nil {
			return err
		}

		target, err := s.repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}

		if target.IsAdmin() {
			return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
		}
	}

	return s.repo.SoftDelete(ctx, targetID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, user, AdminUpdateUserRequest{
		Name:  req.Name,
		Phone: req.Phone,
	})
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

// Lookup returns the public profile fields other services need, such as
// the payment step's customer details.
func (s *Service) Lookup(ctx context.Context, id string) (*auth.UserInfo, error) {
	info, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	info.PasswordHash = ""
	return info, nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Active:       u.Active,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
