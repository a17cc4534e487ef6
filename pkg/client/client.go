package client

import (
	"sync"
	"time"

	"github.com/Kush1612/BuckIt/pkg/config"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const userAgent = "BuckIt-CLI/0.2.0"

var (
	mu          sync.RWMutex
	httpClient  *resty.Client
	backend     config.Backend
	accessToken string
)

// Init builds the HTTP client from the resolved Supabase configuration.
func Init() error {
	b := config.ResolveBackend()
	if !b.Configured() {
		return clierrors.NotConfiguredError()
	}
	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second
	InitWith(b, timeout)
	return nil
}

// InitWith builds the HTTP client for an explicit backend.
func InitWith(b config.Backend, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := resty.New()
	c.SetBaseURL(b.URL)
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", userAgent)
	c.SetHeader("apikey", b.AnonKey)
	c.SetAuthToken(b.AnonKey)

	// Retry transient failures only; 4xx responses are final.
	c.SetRetryCount(2)
	c.SetRetryWaitTime(300 * time.Millisecond)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	c.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode(), "url", resp.Request.URL, "elapsed", resp.Time())
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	httpClient = c
	backend = b
	if accessToken != "" {
		c.SetAuthToken(accessToken)
	}
}

// GetClient returns the HTTP client, initializing it on first use.
func GetClient() (*resty.Client, error) {
	mu.RLock()
	c := httpClient
	mu.RUnlock()
	if c != nil {
		return c, nil
	}
	if err := Init(); err != nil {
		return nil, err
	}
	mu.RLock()
	defer mu.RUnlock()
	return httpClient, nil
}

// Backend returns the backend the client was built for.
func Backend() config.Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetAuthToken makes subsequent requests act as the signed-in user.
func SetAuthToken(token string) {
	mu.Lock()
	defer mu.Unlock()
	accessToken = token
	if httpClient != nil {
		httpClient.SetAuthToken(token)
	}
}

// AccessToken returns the user token, or the anon key when nobody is signed in.
func AccessToken() string {
	mu.RLock()
	defer mu.RUnlock()
	if accessToken != "" {
		return accessToken
	}
	return backend.AnonKey
}

// ClearAuthToken drops the user token and falls back to the anon key.
func ClearAuthToken() {
	mu.Lock()
	defer mu.Unlock()
	accessToken = ""
	if httpClient != nil {
		httpClient.SetAuthToken(backend.AnonKey)
	}
}

// Reset forgets the client entirely.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	httpClient = nil
	backend = config.Backend{}
	accessToken = ""
}
