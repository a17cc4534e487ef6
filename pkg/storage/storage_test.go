package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	signCalls map[string]int
	headCalls int
	status    int
	headErr   error
	missing   map[string]bool
	removed   []string
	uploaded  map[string][]byte
	tree      map[string][]api.StorageObject
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		signCalls: map[string]int{},
		missing:   map[string]bool{},
		uploaded:  map[string][]byte{},
		tree:      map[string][]api.StorageObject{},
	}
}

func (f *fakeAPI) Upload(_ context.Context, bucket, path string, data []byte, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[bucket+"/"+path] = data
	return nil
}

func (f *fakeAPI) CreateSignedURL(_ context.Context, bucket, path string, ttl int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signCalls[path]++
	if f.missing[path] {
		return "", &api.APIError{StatusCode: 400, Code: "not_found", Message: "Object not found"}
	}
	return fmt.Sprintf("https://x/%s/%s?ttl=%d&n=%d", bucket, path, ttl, f.signCalls[path]), nil
}

func (f *fakeAPI) PublicURL(bucket, path string) string {
	return "https://x/public/" + bucket + "/" + path
}

func (f *fakeAPI) Remove(_ context.Context, _ string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, paths...)
	return nil
}

func (f *fakeAPI) ListObjects(_ context.Context, _ string, prefix string) ([]api.StorageObject, error) {
	return f.tree[prefix], nil
}

func (f *fakeAPI) Head(_ context.Context, rawURL string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if !strings.HasSuffix(rawURL, visibilityProbe) {
		return 0, errors.New("unexpected probe url " + rawURL)
	}
	return f.status, f.headErr
}

func TestSignedURLCachedUntilNearExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	b := NewWith("memories", f, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	u1, err := b.SignedURL(ctx, "l1/a.jpg", 60)
	require.NoError(t, err)
	u2, err := b.SignedURL(ctx, "l1/a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, u1, u2)
	assert.Equal(t, 1, f.signCalls["l1/a.jpg"])

	now = now.Add(29 * time.Second)
	_, err = b.SignedURL(ctx, "l1/a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, 1, f.signCalls["l1/a.jpg"], "still outside the refresh margin")

	now = now.Add(2 * time.Second)
	u3, err := b.SignedURL(ctx, "l1/a.jpg", 60)
	require.NoError(t, err)
	assert.NotEqual(t, u1, u3)
	assert.Equal(t, 2, f.signCalls["l1/a.jpg"])
}

func TestSignedURLDefaultTTL(t *testing.T) {
	b := NewWith("memories", newFakeAPI(), nil)
	u, err := b.ResolveURL(context.Background(), "a.jpg", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "ttl=3600")
}

func TestSignedURLErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	f.missing["gone.jpg"] = true
	b := NewWith("memories", f, nil)

	_, err := b.SignedURL(ctx, "gone.jpg", 60)
	require.Error(t, err)
	_, err = b.SignedURL(ctx, "gone.jpg", 60)
	require.Error(t, err)
	assert.Equal(t, 2, f.signCalls["gone.jpg"])
}

func TestCacheSharedAcrossBuckets(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	cache := NewCache()

	_, err := NewWith("memories", f, cache).SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	_, err = NewWith("memories", f, cache).SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, 1, f.signCalls["a.jpg"])

	_, err = NewWith("avatars", f, cache).SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, 2, f.signCalls["a.jpg"], "keys include the bucket")
}

func TestConcurrentSignedURLs(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	b := NewWith("memories", f, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.SignedURL(ctx, "a.jpg", 60)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.LessOrEqual(t, f.signCalls["a.jpg"], 20)
	assert.GreaterOrEqual(t, f.signCalls["a.jpg"], 1)
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"missing object on public bucket", 404, nil, true},
		{"unauthorized", 401, nil, false},
		{"forbidden", 403, nil, false},
		{"other status", 200, nil, true},
		{"bad request", 400, nil, true},
		{"network error", 0, errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI()
			f.status = tt.status
			f.headErr = tt.err
			b := NewWith("memories", f, nil)

			assert.Equal(t, tt.want, b.IsPublic(context.Background()))
			assert.Equal(t, tt.want, b.IsPublic(context.Background()))
			assert.Equal(t, 1, f.headCalls, "result is cached")
		})
	}
}

func TestUploadAndRemoveDropCachedURL(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	b := NewWith("memories", f, nil)

	_, err := b.SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	require.NoError(t, b.Upload(ctx, "a.jpg", []byte("x"), "image/jpeg", true))
	_, err = b.SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, 2, f.signCalls["a.jpg"])
	assert.Equal(t, []byte("x"), f.uploaded["memories/a.jpg"])

	require.NoError(t, b.Remove(ctx, "a.jpg"))
	_, err = b.SignedURL(ctx, "a.jpg", 60)
	require.NoError(t, err)
	assert.Equal(t, 3, f.signCalls["a.jpg"])
	assert.Equal(t, []string{"a.jpg"}, f.removed)
}

func TestWalk(t *testing.T) {
	id := func(s string) *string { return &s }
	f := newFakeAPI()
	f.tree["l1"] = []api.StorageObject{
		{Name: "i1"},
		{Name: "flat.jpg", ID: id("o1")},
	}
	f.tree["l1/i1"] = []api.StorageObject{
		{Name: "nested.jpg", ID: id("o2")},
	}

	paths, err := NewWith("memories", f, nil).Walk(context.Background(), "l1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"l1/i1/nested.jpg", "l1/flat.jpg"}, paths)
}

func TestPublicURL(t *testing.T) {
	b := NewWith("memories", newFakeAPI(), nil)
	assert.Equal(t, "https://x/public/memories/a.jpg", b.PublicURL("a.jpg"))
	assert.Equal(t, "memories", b.Name())
}
