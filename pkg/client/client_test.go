package client

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kush1612/BuckIt/pkg/config"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientNotConfigured(t *testing.T) {
	Reset()
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))
	config.Set("supabase.app_json", filepath.Join(dir, "none.json"))

	c, err := GetClient()
	assert.Nil(t, c)
	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, clierrors.ErrorTypeNotConfigured, cliErr.Type)
}

func TestGetClientSingleton(t *testing.T) {
	Reset()
	InitWith(config.Backend{URL: "http://localhost:54321", AnonKey: "anon"}, time.Second)

	c1, err := GetClient()
	require.NoError(t, err)
	c2, err := GetClient()
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestHeadersCarryKeyAndToken(t *testing.T) {
	var gotKey, gotAuth, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	Reset()
	InitWith(config.Backend{URL: srv.URL, AnonKey: "anon-key"}, time.Second)
	c, err := GetClient()
	require.NoError(t, err)

	_, err = c.R().Get("/rest/v1/lists")
	require.NoError(t, err)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
	assert.Equal(t, userAgent, gotAgent)
	assert.Equal(t, "anon-key", AccessToken())

	SetAuthToken("user-token")
	_, err = c.R().Get("/rest/v1/lists")
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "user-token", AccessToken())

	ClearAuthToken()
	_, err = c.R().Get("/rest/v1/lists")
	require.NoError(t, err)
	assert.Equal(t, "Bearer anon-key", gotAuth)
}

func TestTokenSurvivesReinit(t *testing.T) {
	Reset()
	SetAuthToken("early-token")
	InitWith(config.Backend{URL: "http://localhost:1", AnonKey: "anon"}, time.Second)
	assert.Equal(t, "early-token", AccessToken())
	assert.Equal(t, "http://localhost:1", Backend().URL)
}

func TestRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	Reset()
	InitWith(config.Backend{URL: srv.URL, AnonKey: "k"}, time.Second)
	c, err := GetClient()
	require.NoError(t, err)

	resp, err := c.R().Get("/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 2, calls)
}
