package models

import (
	"encoding/json"
	"time"
)

// DefaultAvatar is served for users who never uploaded one
const DefaultAvatar = "/uploads/avatars/default-avatar.png"

// User defines the user model based on the 'users' table
type User struct {
	ID        int64           `json:"id" db:"id" example:"1"`
	Name      string          `json:"name" db:"name" example:"Ada Lovelace"`
	Email     string          `json:"email" db:"email" example:"ada@lab.local"`
	Password  string          `json:"-" db:"password"` // bcrypt hash, never serialized
	Role      Role            `json:"role" db:"role" example:"user"`
	Status    UserStatus      `json:"status" db:"status" example:"active"`
	Phone     *string         `json:"phone,omitempty" db:"phone"`
	Avatar    *string         `json:"avatar,omitempty" db:"avatar"`
	Prefs     json.RawMessage `json:"prefs,omitempty" db:"prefs" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive reports whether the user may log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// AvatarPath returns the stored avatar or the default one
func (u *User) AvatarPath() string {
	if u.Avatar != nil && *u.Avatar != "" {
		return *u.Avatar
	}
	return DefaultAvatar
}
