// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/booking-api/internal/authz"
)

type CreateUserRequest struct {
	Email    string  `json:"email"    validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=128"`
	Name     string  `json:"name"     validate:"required,min=2,max=100"`
	Phone    *string `json:"phone"    validate:"omitempty,min=7,max=20"`
	Role     string  `json:"role"     validate:"omitempty,oneof=user admin"`
}

// UpdateProfileRequest is what an identity may change about itself.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"  validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// AdminUpdateUserRequest adds the fields only an admin may override.
type AdminUpdateUserRequest struct {
	Name   *string `json:"name,omitempty"   validate:"omitempty,min=2,max=100"`
	Email  *string `json:"email,omitempty"  validate:"omitempty,email,max=255"`
	Phone  *string `json:"phone,omitempty"  validate:"omitempty,min=7,max=20"`
	Active *bool   `json:"active,omitempty"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int
	PageSize int
	Search   string
	Role     authz.Role
	Active   *bool
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
