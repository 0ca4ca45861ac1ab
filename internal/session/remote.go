package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/social-hub/pkg/supabase"
)

// RemoteIdentity adapts the hosted auth API.
type RemoteIdentity struct {
	auth *supabase.AuthClient
	now  func() time.Time
}

func NewRemoteIdentity(client *supabase.Client) *RemoteIdentity {
	return &RemoteIdentity{auth: client.Auth(), now: time.Now}
}

func (r *RemoteIdentity) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	resp, err := r.auth.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return r.session(resp), nil
}

func (r *RemoteIdentity) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := r.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return r.session(resp), nil
}

func (r *RemoteIdentity) SignOut(ctx context.Context, accessToken string) error {
	return mapAuthError(r.auth.SignOut(ctx, accessToken))
}

func (r *RemoteIdentity) Recover(ctx context.Context, email string) error {
	return mapAuthError(r.auth.Recover(ctx, email))
}

func (r *RemoteIdentity) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	u, err := r.auth.UpdateUser(ctx, accessToken, supabase.UserAttributes{
		Email:    attrs.Email,
		Password: attrs.Password,
		Data:     attrs.Metadata,
	})
	if err != nil {
		return nil, mapAuthError(err)
	}
	user := toUser(u)
	return &user, nil
}

func (r *RemoteIdentity) GetUser(ctx context.Context, accessToken string) (*User, error) {
	u, err := r.auth.GetUser(ctx, accessToken)
	if err != nil {
		return nil, mapAuthError(err)
	}
	user := toUser(u)
	return &user, nil
}

func (r *RemoteIdentity) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := r.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return r.session(resp), nil
}

func (r *RemoteIdentity) session(resp *supabase.AuthResponse) *Session {
	s := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.AccessToken != "" {
		s.ExpiresAt = resp.Expiry(r.now())
	}
	if resp.User != nil {
		s.User = toUser(resp.User)
	}
	return s
}

func toUser(u *supabase.User) User {
	if u == nil {
		return User{}
	}
	return User{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

func mapAuthError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "invalid_credentials":
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
		case "user_already_exists", "email_exists":
			return fmt.Errorf("%w: %s", ErrEmailTaken, apiErr.Message)
		}
		// the password grant reports bad credentials as invalid_grant
		if apiErr.Code == "invalid_grant" && apiErr.Message == "Invalid login credentials" {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
		}
	}
	if errors.Is(err, supabase.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}
