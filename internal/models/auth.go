package models

import "time"

// AuthUser is an account of the local identity backend.
type AuthUser struct {
	Base
	Email        string         `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash" json:"-"`
	Metadata     map[string]any `gorm:"column:metadata;serializer:json" json:"user_metadata"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at,omitzero"`
}

func (AuthUser) TableName() string {
	return "auth_users"
}

type RefreshToken struct {
	Token     string    `gorm:"primaryKey;column:token"`
	UserID    string    `gorm:"column:user_id;index"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	Revoked   bool      `gorm:"column:revoked"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RefreshToken) TableName() string {
	return "auth_refresh_tokens"
}

// SessionRecord persists the signed-in session across restarts.
type SessionRecord struct {
	ID           string         `gorm:"primaryKey;column:id"`
	AccessToken  string         `gorm:"column:access_token"`
	RefreshToken string         `gorm:"column:refresh_token"`
	ExpiresAt    time.Time      `gorm:"column:expires_at"`
	UserID       string         `gorm:"column:user_id"`
	Email        string         `gorm:"column:email"`
	Metadata     map[string]any `gorm:"column:metadata;serializer:json"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}
