package models

import "time"

// Role gates admin-only mutations.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// DefaultAvatar is assigned to users who never uploaded one.
const DefaultAvatar = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

// User represents the user model in the database
type User struct {
	Base
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Name        string     `gorm:"not null" json:"name"`
	Password    string     `gorm:"not null" json:"-"`
	Role        Role       `gorm:"type:varchar(16);not null;default:member" json:"role"`
	Avatar      string     `gorm:"type:text" json:"avatar"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Firms       []Firm     `gorm:"many2many:user_firms" json:"firms,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Token is a hashed password-reset code. Expired rows are purged in the
// background and are never accepted. Attempts counts wrong guesses.
type Token struct {
	Base
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TokenHash string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Attempts  int       `gorm:"not null;default:0" json:"-"`
}

// Expired reports whether the token has passed its TTL.
func (t *Token) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
