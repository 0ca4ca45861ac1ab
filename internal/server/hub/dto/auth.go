package dto

import "time"

// SignUpRequest creates the account and its profile row
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"hunter22"`
	Username string `json:"username" validate:"required,username" example:"ada"`
	FullName string `json:"full_name" validate:"max=100" example:"Ada Lovelace"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required" example:"hunter22"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"ada@example.com"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6" example:"hunter23"`
}

// SessionResponse is the signed-in session as the presentation layer sees it.
// The refresh token never leaves the hub; the access token is only returned
// by sign-in and sign-up.
type SessionResponse struct {
	SignedIn    bool           `json:"signed_in"`
	AccessToken string         `json:"access_token,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Email       string         `json:"email,omitempty"`
	Metadata    map[string]any `json:"user_metadata,omitempty"`
}
