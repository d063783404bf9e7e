// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/booking-api/internal/authz"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Phone        *string    `db:"phone"`
	Role         authz.Role `db:"role"`
	Active       bool       `db:"active"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == authz.RoleAdmin
}
