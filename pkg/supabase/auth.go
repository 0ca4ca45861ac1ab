package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles authentication operations.
type AuthClient struct {
	client *Client
}

// AuthResponse is the session returned by sign-in, sign-up and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expiry returns the absolute expiry of the access token.
func (a *AuthResponse) Expiry(now time.Time) time.Time {
	if a.ExpiresAt > 0 {
		return time.Unix(a.ExpiresAt, 0)
	}
	return now.Add(time.Duration(a.ExpiresIn) * time.Second)
}

// User is an identity record.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Role             string         `json:"role"`
	EmailConfirmedAt string         `json:"email_confirmed_at,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// UserAttributes are the mutable fields of a user.
type UserAttributes struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp creates a user. When email confirmation is on, the response carries
// only the user and no tokens.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	resp, err := a.post(ctx, "/auth/v1/signup", body)
	if err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Body, &authResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if authResp.User == nil {
		var user User
		if err := json.Unmarshal(resp.Body, &user); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		authResp.User = &user
	}
	return &authResp, nil
}

// SignIn exchanges email and password for a session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return a.token(ctx, "password", map[string]any{"email": email, "password": password})
}

// Refresh exchanges a refresh token for a new session.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	return a.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

// SignOut revokes the session behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.client.WithToken(accessToken).Auth().post(ctx, "/auth/v1/logout", nil)
	return err
}

// Recover sends a password recovery email.
func (a *AuthClient) Recover(ctx context.Context, email string) error {
	_, err := a.post(ctx, "/auth/v1/recover", map[string]any{"email": email})
	return err
}

// GetUser returns the user behind accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// UpdateUser changes email, password or metadata of the user behind accessToken.
func (a *AuthClient) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	req, err := a.client.jsonRequest(ctx, http.MethodPut, a.client.baseURL+"/auth/v1/user", attrs)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

func (a *AuthClient) token(ctx context.Context, grant string, body map[string]any) (*AuthResponse, error) {
	resp, err := a.post(ctx, "/auth/v1/token?grant_type="+grant, body)
	if err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := resp.JSON(&authResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &authResp, nil
}

func (a *AuthClient) post(ctx context.Context, path string, body any) (*Response, error) {
	if body == nil {
		body = map[string]any{}
	}
	req, err := a.client.jsonRequest(ctx, http.MethodPost, a.client.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	return a.client.do(req)
}
