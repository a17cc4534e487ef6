package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/auth"
	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/credentials"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

type AuthService struct {
	d *Deps
}

// NewAuthService creates a new auth service
func NewAuthService(d *Deps) *AuthService {
	return &AuthService{d: d}
}

// SignUpResult reports whether the new account is already signed in. Projects
// that require email confirmation return a user without a session.
type SignUpResult struct {
	User     api.User `json:"user"`
	SignedIn bool     `json:"signed_in"`
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return clierrors.ValidationError("email", "enter a valid email address")
	}
	if password == "" {
		return clierrors.ValidationError("password", "cannot be empty")
	}
	return nil
}

// SignUp creates an account and stores the session when one is issued.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	session, err := api.SignUp(ctx, email, password, nil)
	if err != nil {
		return nil, err
	}

	res := &SignUpResult{User: session.User}
	if session.HasToken() {
		if err := s.store(session); err != nil {
			return nil, err
		}
		res.SignedIn = true
	}
	return res, nil
}

// Login signs in with email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*api.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	session, err := api.SignIn(ctx, email, password)
	if err != nil {
		if api.IsUnauthorized(err) || isBadRequest(err) {
			return nil, clierrors.NewCLIError(clierrors.ErrorTypeAuth, "Invalid email or password", err)
		}
		return nil, err
	}
	if err := s.store(session); err != nil {
		return nil, err
	}
	return &session.User, nil
}

func (s *AuthService) store(session *api.Session) error {
	creds := auth.CredentialsFromSession(session)
	if err := credentials.Save(creds); err != nil {
		return clierrors.NewCLIError(clierrors.ErrorTypeValidation, "failed to save credentials", err)
	}
	client.SetAuthToken(creds.AccessToken)
	s.d.Notifier.Publish(auth.EventSignedIn, &session.User)
	return nil
}

// Logout ends the session and clears the signed-in user's local state.
// The pending-upload cache is kept.
func (s *AuthService) Logout(ctx context.Context) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Warn("Failed to read credentials", "error", err)
	}

	uid := ""
	if creds != nil {
		uid = creds.UserID
		if creds.AccessToken != "" {
			client.SetAuthToken(creds.AccessToken)
			if err := api.SignOut(ctx); err != nil {
				logger.Warn("Server sign-out failed", "error", err)
			}
		}
	}

	if err := credentials.Delete(); err != nil {
		return err
	}
	if err := s.d.State.Reset(ctx, uid); err != nil {
		return err
	}
	client.ClearAuthToken()
	s.d.Notifier.Publish(auth.EventSignedOut, nil)
	return nil
}

// WhoAmI returns the signed-in user as the backend sees them.
func (s *AuthService) WhoAmI(ctx context.Context) (*api.User, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}

	user, err := api.GetUser(ctx)
	if err != nil && auth.IsSessionError(err) {
		if err := s.d.Session.HandleSessionError(ctx, err); err != nil {
			return nil, err
		}
		user, err = api.GetUser(ctx)
	}
	return user, err
}

// CurrentUser returns the locally stored identity without a network call.
func (s *AuthService) CurrentUser(ctx context.Context) (*credentials.Credentials, error) {
	return s.d.session(ctx)
}

// Refresh forces a token refresh.
func (s *AuthService) Refresh(ctx context.Context) (*credentials.Credentials, error) {
	if err := s.d.Session.RecoverSession(ctx); err != nil {
		return nil, err
	}
	return credentials.Load()
}

func isBadRequest(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 400
}
