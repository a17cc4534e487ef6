package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kush1612/BuckIt/pkg/config"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/storage"
)

func doctorFor(b config.Backend) *DoctorService {
	return &DoctorService{
		backend: func() config.Backend { return b },
		timeout: time.Second,
	}
}

func TestDoctorReachable(t *testing.T) {
	apikey := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apikey <- r.Header.Get("apikey")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	report, err := doctorFor(config.Backend{URL: srv.URL, AnonKey: "eyJhbGciOiJIUzI1NiJ9.long"}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, report.Status)
	assert.Equal(t, "eyJhbGci...", report.AnonKey)
	assert.True(t, report.KeySet)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.long", <-apikey)
}

func TestDoctorWithoutURL(t *testing.T) {
	report, err := doctorFor(config.Backend{}).Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitNoURL, clierrors.ExitCodeOf(err))
	assert.Equal(t, "(not set)", report.AnonKey)
	assert.False(t, report.KeySet)
}

func TestDoctorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	report, err := doctorFor(config.Backend{URL: url, AnonKey: "key"}).Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitUnreachable, clierrors.ExitCodeOf(err))
	assert.Zero(t, report.Status)
}

// publicObjects answers visibility checks with a fixed status.
type publicObjects struct {
	*fakeObjects
	status int
	heads  []string
}

func (o *publicObjects) PublicURL(bucket, path string) string {
	return "https://cdn.test/public/" + bucket + "/" + path
}

func (o *publicObjects) Head(_ context.Context, rawURL string) (int, error) {
	o.heads = append(o.heads, rawURL)
	return o.status, nil
}

func TestDoctorReportsBucketVisibility(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"public bucket", http.StatusNotFound, true},
		{"private bucket", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := &publicObjects{fakeObjects: newFakeObjects(), status: tt.status}
			d := doctorFor(config.Backend{URL: srv.URL, AnonKey: "key"})
			d.bucket = func(config.Backend) *storage.Bucket {
				return storage.NewWith("memories", objects, nil)
			}

			report, err := d.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "memories", report.Bucket)
			assert.Equal(t, tt.want, report.BucketPublic)
			require.Len(t, objects.heads, 1)
			assert.Contains(t, objects.heads[0], "https://cdn.test/public/memories/")
		})
	}
}

func TestDoctorSkipsBucketWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	called := false
	d := doctorFor(config.Backend{URL: url, AnonKey: "key"})
	d.bucket = func(config.Backend) *storage.Bucket {
		called = true
		return nil
	}

	report, err := d.Check(context.Background())
	require.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, report.Bucket)
}
