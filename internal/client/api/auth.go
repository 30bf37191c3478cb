package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/atinyakov/GophCards/internal/models"
)

// loginRequest is the login payload. The API accepts either an email or a
// username in the email field.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, identifier, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, pathLogin, "", loginRequest{Email: identifier, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login: %w: response carried no token", ErrTransient)
	}
	return resp.Token, nil
}

// Register creates an account. The response doubles as the initial profile.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (string, models.User, error) {
	// The profile fields sit next to the token at the top level; User's
	// UnmarshalJSON would hide an embedded token field, so decode twice.
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, pathRegister, "", req, &raw); err != nil {
		return "", models.User{}, err
	}
	var tok struct {
		Token string `json:"token"`
	}
	var user models.User
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", models.User{}, fmt.Errorf("register: invalid response: %w: %w", ErrTransient, err)
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return "", models.User{}, fmt.Errorf("register: invalid response: %w: %w", ErrTransient, err)
	}
	if tok.Token == "" {
		return "", models.User{}, fmt.Errorf("register: %w: response carried no token", ErrTransient)
	}
	return tok.Token, user, nil
}

// Profile returns the user the token belongs to.
func (c *Client) Profile(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, fmt.Errorf("profile: %w", ErrAuth)
	}
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, pathProfile, token, nil, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout asks the API to invalidate the token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, pathLogout, token, nil, nil)
}

// IsAuthError reports whether err means the token was rejected or absent.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}
