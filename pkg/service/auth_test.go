package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/auth"
	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/credentials"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/localstate"
	"github.com/Kush1612/BuckIt/pkg/pending"
)

func TestLoginStoresSession(t *testing.T) {
	env := newTestEnv(t)
	env.backend.register("sam@example.com")

	var events []auth.Event
	env.deps.Notifier.OnAuthStateChange(func(e auth.Event, _ *api.User) { events = append(events, e) })

	user, err := NewAuthService(env.deps).Login(context.Background(), " sam@example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "user-sam", user.ID)

	creds, err := credentials.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "token-sam@example.com", creds.AccessToken)
	assert.Equal(t, "sam@example.com", creds.Email)
	assert.Equal(t, "token-sam@example.com", client.AccessToken())
	assert.Equal(t, []auth.Event{auth.EventSignedIn}, events)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.backend.register("sam@example.com")

	_, err := NewAuthService(env.deps).Login(context.Background(), "sam@example.com", "nope")
	require.Error(t, err)

	var cliErr *clierrors.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierrors.ErrorTypeAuth, cliErr.Type)

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestLoginValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.deps)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "pw"},
		{"no at sign", "sam.example.com", "pw"},
		{"empty password", "sam@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			var cliErr *clierrors.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, clierrors.ErrorTypeValidation, cliErr.Type)
		})
	}
}

func TestSignUpSignsIn(t *testing.T) {
	env := newTestEnv(t)

	res, err := NewAuthService(env.deps).SignUp(context.Background(), "new@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, res.SignedIn)
	assert.Equal(t, "new@example.com", res.User.Email)

	creds, err := credentials.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "user-new", creds.UserID)
}

func TestWhoAmI(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")

	user, err := NewAuthService(env.deps).WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
}

func TestDataCommandsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewItemService(env.deps).Items(context.Background(), api.ItemQuery{})
	var cliErr *clierrors.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierrors.ErrorTypeAuth, cliErr.Type)
}

func TestLogoutClearsSessionState(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")
	ctx := context.Background()
	l := env.activeList(t, "Summer")

	require.NoError(t, env.deps.State.SaveProfile(ctx, "user-sam", localstate.Profile{DisplayName: "Sam"}))
	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "a.jpg"}))

	var events []auth.Event
	env.deps.Notifier.OnAuthStateChange(func(e auth.Event, _ *api.User) { events = append(events, e) })

	require.NoError(t, NewAuthService(env.deps).Logout(ctx))

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Equal(t, 1, env.backend.signOutCount())
	assert.Equal(t, "anon-key", client.AccessToken())
	assert.Equal(t, []auth.Event{auth.EventSignedOut}, events)

	active, err := env.deps.State.ActiveList(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
	joined, err := env.deps.State.JoinedLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, joined)
	p, err := env.deps.State.Profile(ctx, "user-sam")
	require.NoError(t, err)
	assert.Empty(t, p.DisplayName)

	assert.Len(t, env.deps.Pending.ForList(ctx, l.ID), 1, "pending uploads survive sign-out")
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, NewAuthService(env.deps).Logout(context.Background()))
	assert.Zero(t, env.backend.signOutCount())
}
