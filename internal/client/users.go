package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"homestock/internal/domain"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string
	Email    string
	Password string
}

// SignInResult is the backend's answer to a successful sign-in.
type SignInResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // milliseconds, 0 when omitted
}

// TTL converts ExpiresIn into a duration; zero means the server gave no lifetime.
func (r SignInResult) TTL() time.Duration {
	return time.Duration(r.ExpiresIn) * time.Millisecond
}

func (c *Client) SignIn(ctx context.Context, creds Credentials) (SignInResult, error) {
	var res SignInResult
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "user/signin",
		body:      creds,
		anonymous: true,
		fallback:  "login failed",
	}, &res)
	if err != nil {
		return SignInResult{}, err
	}
	if res.Token == "" {
		return SignInResult{}, errors.New("server returned an invalid token")
	}
	return res, nil
}

// SignUp registers a new account. It does not establish a session.
func (c *Client) SignUp(ctx context.Context, reg Registration) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "user/signup",
		form: map[string]string{
			"username": reg.Username,
			"email":    reg.Email,
			"password": reg.Password,
		},
		anonymous: true,
		fallback:  "registration failed",
	}, nil)
}

// Profile queries a profile endpoint with an explicit token. A 401 here does not clear the
// stored session.
func (c *Client) Profile(ctx context.Context, endpoint, token string) (domain.User, error) {
	var raw map[string]any
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     endpoint,
		token:    token,
		fallback: "could not load profile",
	}, &raw)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:       firstField(raw, "id", "userId", "sub", "user_id"),
		Username: firstField(raw, "username", "name", "user_name"),
		Email:    firstField(raw, "email", "user_email"),
	}, nil
}

// UserInfo returns the public profile of userID.
func (c *Client) UserInfo(ctx context.Context, userID string) (domain.UserInfo, error) {
	var info domain.UserInfo
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "user/info/" + escape(userID),
		fallback: "could not load user info",
	}, &info)
	return info, err
}

func firstField(m map[string]any, names ...string) string {
	for _, n := range names {
		switch v := m[n].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
