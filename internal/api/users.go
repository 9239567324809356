package api

import (
	"context"
	"fmt"
)

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup registers a new account. No credentials are required.
func (s UsersService) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, ErrNoCredentials
	}
	params := NewParams().
		Set("username", in.Username).
		Set("email", in.Email).
		Set("password", in.Password)
	req, err := NewRequest(MethodPost, ResourcePath(ResourceSignup), params)
	if err != nil {
		return nil, err
	}
	var result User
	if _, err := sendJSON(ctx, s, req, &result); err != nil {
		return nil, err
	}
	if result.Username == "" {
		result.Username = in.Username
	}
	return &result, nil
}

// Me fetches the account of the configured user.
func (s UsersService) Me(ctx context.Context) (*User, error) {
	req, err := s.userRequest("")
	if err != nil {
		return nil, err
	}
	var result User
	if _, err := sendJSON(ctx, s, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Posts lists the posts created by the configured user.
func (s UsersService) Posts(ctx context.Context) ([]Post, error) {
	req, err := s.userRequest(ResourcePosts)
	if err != nil {
		return nil, err
	}
	return sendList[Post](ctx, s, req)
}

func (s UsersService) userRequest(sub string) (*Request, error) {
	auth, err := s.userAuth()
	if err != nil {
		return nil, err
	}
	segments := []any{auth.Username}
	if sub != "" {
		segments = append(segments, sub)
	}
	req, err := NewRequest(MethodGet, ResourcePath(ResourceUsers, segments...), nil)
	if err != nil {
		return nil, fmt.Errorf("user request: %w", err)
	}
	return req.WithBasicAuth(auth.Username, auth.Password), nil
}
