package api

import (
	"context"

	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/logger"
	json "github.com/json-iterator/go"
)

// SignUp registers a new account. When the project requires email
// confirmation the returned session has no tokens, only the user.
func SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*Session, error) {
	logger.Debug("Attempting sign up", "email", email)

	reqBody, err := json.Marshal(Credentials{Email: email, Password: password, Data: data})
	if err != nil {
		return nil, err
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/auth/v1/signup")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return nil, err
	}
	if session.User.ID == "" {
		// unconfirmed sign-ups return the bare user object
		var user User
		if err := json.Unmarshal(resp.Body(), &user); err != nil {
			return nil, err
		}
		session.User = user
	}

	logger.Debug("Sign up successful", "user_id", session.User.ID, "confirmed", session.HasToken())
	return &session, nil
}

// SignIn authenticates with email and password.
func SignIn(ctx context.Context, email, password string) (*Session, error) {
	logger.Debug("Attempting login", "email", email)

	reqBody, err := json.Marshal(Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("grant_type", "password").
		SetBody(reqBody).
		Post("/auth/v1/token")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return nil, err
	}

	logger.Debug("Login successful", "user_id", session.User.ID)
	return &session, nil
}

// Refresh exchanges a refresh token for a new session.
func Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	logger.Debug("Refreshing access token")

	reqBody, err := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("grant_type", "refresh_token").
		SetBody(reqBody).
		Post("/auth/v1/token")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return nil, err
	}

	logger.Debug("Access token refreshed")
	return &session, nil
}

// GetUser returns the user the current token belongs to.
func GetUser(ctx context.Context) (*User, error) {
	logger.Debug("Fetching current user")

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		Get("/auth/v1/user")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, err
	}

	logger.Debug("Current user fetched", "email", user.Email)
	return &user, nil
}

// SignOut revokes the current session on the server.
func SignOut(ctx context.Context) error {
	logger.Debug("Signing out")

	c, err := client.GetClient()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		Post("/auth/v1/logout")

	return CheckResponse(resp, err)
}
