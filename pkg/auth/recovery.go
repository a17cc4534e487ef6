package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/credentials"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

// refreshWindow is how close to expiry a token is refreshed before use.
const refreshWindow = 60 * time.Second

// RefreshFunc exchanges a refresh token for a new session.
type RefreshFunc func(ctx context.Context, refreshToken string) (*api.Session, error)

// SessionRecovery handles automatic session recovery
type SessionRecovery struct {
	maxRetries int
	retryDelay time.Duration
	refresh    RefreshFunc
	notifier   *Notifier
}

// NewSessionRecovery creates a new session recovery handler
func NewSessionRecovery() *SessionRecovery {
	return &SessionRecovery{
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		refresh:    api.Refresh,
		notifier:   Default,
	}
}

// CredentialsFromSession converts a backend session into stored credentials.
func CredentialsFromSession(s *api.Session) *credentials.Credentials {
	return &credentials.Credentials{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresAt:    s.Expiry(time.Now()),
		UserID:       s.User.ID,
		Email:        s.User.Email,
	}
}

// Session returns usable credentials, refreshing them when they are about
// to expire, and points the HTTP client at the user's token.
func (sr *SessionRecovery) Session(ctx context.Context) (*credentials.Credentials, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || creds.AccessToken == "" {
		return nil, clierrors.AuthError("Not logged in")
	}

	if creds.ExpiresWithin(refreshWindow) {
		if err := sr.RecoverSession(ctx); err != nil {
			return nil, err
		}
		if creds, err = credentials.Load(); err != nil || creds == nil {
			return nil, clierrors.SessionExpiredError()
		}
	}

	client.SetAuthToken(creds.AccessToken)
	return creds, nil
}

// RecoverSession attempts to recover an expired session
func (sr *SessionRecovery) RecoverSession(ctx context.Context) error {
	logger.Debug("Attempting to recover session")

	creds, err := credentials.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds == nil || creds.RefreshToken == "" {
		sr.notifier.Publish(EventSignedOut, nil)
		return clierrors.SessionExpiredError()
	}

	var lastErr error
	for attempt := 1; attempt <= sr.maxRetries; attempt++ {
		logger.Debug("Refreshing token", "attempt", attempt)

		session, err := sr.refresh(ctx, creds.RefreshToken)
		if err == nil && session.HasToken() {
			next := CredentialsFromSession(session)
			if next.RefreshToken == "" {
				next.RefreshToken = creds.RefreshToken
			}
			if next.UserID == "" {
				next.UserID, next.Email = creds.UserID, creds.Email
			}
			if err := credentials.Save(next); err != nil {
				logger.Error("Failed to save updated credentials", "error", err)
			}
			client.SetAuthToken(next.AccessToken)
			sr.notifier.Publish(EventTokenRefreshed, &api.User{ID: next.UserID, Email: next.Email})
			return nil
		}
		lastErr = err

		// a rejected refresh token will not succeed on retry
		if api.IsUnauthorized(err) || isBadRequest(err) {
			break
		}

		if attempt < sr.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sr.retryDelay):
			}
		}
	}

	logger.Warn("Session recovery failed", "error", lastErr)
	client.ClearAuthToken()
	sr.notifier.Publish(EventSignedOut, nil)

	expired := clierrors.SessionExpiredError()
	expired.Cause = lastErr
	return expired
}

func isBadRequest(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 400
}

// IsSessionError checks if an error is a session-related error
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	if api.IsUnauthorized(err) {
		return true
	}
	if cliErr := clierrors.CategorizeError(err); cliErr.Type == clierrors.ErrorTypeSessionExpired {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return errMsg == "401" ||
		errMsg == "unauthorized" ||
		strings.Contains(errMsg, "session expired") ||
		strings.Contains(errMsg, "jwt expired") ||
		strings.Contains(errMsg, "token expired")
}

// HandleSessionError handles session-related errors with recovery
func (sr *SessionRecovery) HandleSessionError(ctx context.Context, err error) error {
	if !IsSessionError(err) {
		return err
	}

	logger.Debug("Handling session error with recovery")

	if recoveryErr := sr.RecoverSession(ctx); recoveryErr != nil {
		logger.Error("Session recovery failed", "error", recoveryErr)
		return fmt.Errorf("session expired: %w", recoveryErr)
	}

	return nil
}
