package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches users.role)
type Role string

const (
	RoleTourist   Role = "tourist"
	RoleModerator Role = "moderator"
	RoleCouncil   Role = "council"
	RoleFinance   Role = "finance"
	RoleAdmin     Role = "admin"
)

// User is the local record of an identity issued elsewhere. Rows are
// created on first authenticated request.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Role      Role      `db:"role" json:"role"`
	IsBanned  bool      `db:"is_banned" json:"is_banned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsStaff returns true for roles that act on other users' data
func (u *User) IsStaff() bool {
	return u.Role != RoleTourist
}

// ValidRoles returns every assignable role
func ValidRoles() []Role {
	return []Role{RoleTourist, RoleModerator, RoleCouncil, RoleFinance, RoleAdmin}
}

// IsValidRole checks if role is valid
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if string(r) == role {
			return true
		}
	}
	return false
}
