// Package session holds the signed-in identity and broadcasts every change.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

var (
	ErrNoSession          = errors.New("session: not signed in")
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	ErrUnauthorized       = errors.New("session: unauthorized")
	ErrEmailTaken         = errors.New("session: email already registered")
)

// User is the identity record of the signed-in account.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a signed-in identity with its tokens.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Active reports whether the session carries tokens. Sign-up with email
// confirmation returns a user without tokens.
func (s *Session) Active() bool {
	return s != nil && s.AccessToken != ""
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// UserAttributes are the identity fields UpdateUser can change.
type UserAttributes struct {
	Email    string
	Password string
	Metadata map[string]any
}

// Identity is the identity collaborator.
type Identity interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Profiles writes the public profile row.
type Profiles interface {
	CreateProfile(ctx context.Context, p models.Profile) wrapper.Result[models.Profile]
	UpdateProfile(ctx context.Context, userID string, fields models.ProfileUpdate) wrapper.Result[models.Profile]
}

// Persister keeps the session across restarts.
type Persister interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Event names an auth state transition.
type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Listener receives every transition with the session after it. The session
// is nil after sign-out.
type Listener func(Event, *Session)

// SignUpInput is the account plus the profile fields written after it.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,username"`
	FullName string `json:"full_name" validate:"max=100"`
}
