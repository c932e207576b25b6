package model

import (
	"time"
)

// Role constants
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch s {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	Username          string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash      string     `gorm:"type:text;not null" json:"-"`
	Role              string     `gorm:"type:varchar(16);not null;default:viewer" json:"role"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	FailedLoginCount  int        `gorm:"not null;default:0" json:"-"`
	LockedUntil       *time.Time `json:"-"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsLocked reports whether the account is locked at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PasswordHistory keeps retired password hashes for reuse checks.
// Rows are pruned beyond the configured history depth on each change.
type PasswordHistory struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	ChangedAt    time.Time `gorm:"not null" json:"changed_at"`
}

// TableName specifies the table name for PasswordHistory model
func (PasswordHistory) TableName() string {
	return "password_history"
}

// RefreshToken is the server-side ledger row behind a refresh JWT.
// FamilyID ties together every token descended from one login, so a
// replayed token can take the whole lineage down with it.
type RefreshToken struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	FamilyID  string     `gorm:"type:uuid;index;not null" json:"family_id"`
	IssuedAt  time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	Revoked   bool       `gorm:"not null;default:false" json:"revoked"`
}

// TableName specifies the table name for RefreshToken model
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Usable reports whether the token can still be presented for rotation.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.UsedAt == nil && now.Before(t.ExpiresAt)
}
