// Package storage wraps one storage bucket with the read-side helpers the
// views need: a signed-URL cache, a bucket visibility probe and URL
// resolution.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the signed-URL lifetime used when none is given.
const DefaultTTL = 60 * 60

// refreshMargin is how long before expiry a cached URL stops being reused.
const refreshMargin = 30 * time.Second

// visibilityProbe is an object name that should never exist.
const visibilityProbe = "__supabase_visibility_test__"

// ObjectAPI is the backend surface a Bucket calls into.
type ObjectAPI interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error
	CreateSignedURL(ctx context.Context, bucket, path string, ttl int) (string, error)
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths []string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]api.StorageObject, error)
	Head(ctx context.Context, rawURL string) (int, error)
}

type restAPI struct{}

func (restAPI) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error {
	return api.Upload(ctx, bucket, path, data, contentType, upsert)
}

func (restAPI) CreateSignedURL(ctx context.Context, bucket, path string, ttl int) (string, error) {
	return api.CreateSignedURL(ctx, bucket, path, ttl)
}

func (restAPI) PublicURL(bucket, path string) string {
	return api.PublicURL(bucket, path)
}

func (restAPI) Remove(ctx context.Context, bucket string, paths []string) error {
	return api.Remove(ctx, bucket, paths)
}

func (restAPI) ListObjects(ctx context.Context, bucket, prefix string) ([]api.StorageObject, error) {
	return api.ListObjects(ctx, bucket, prefix)
}

func (restAPI) Head(ctx context.Context, rawURL string) (int, error) {
	return api.Head(ctx, rawURL)
}

type signedEntry struct {
	url       string
	expiresAt time.Time
}

// Cache holds signed URLs keyed "bucket:path" and bucket visibility.
// Buckets created with New share one process-wide Cache.
type Cache struct {
	mu         sync.Mutex
	signed     map[string]signedEntry
	visibility map[string]bool
	group      singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		signed:     map[string]signedEntry{},
		visibility: map[string]bool{},
	}
}

var shared = NewCache()

// Bucket is a handle on one storage bucket.
type Bucket struct {
	name  string
	api   ObjectAPI
	cache *Cache
	now   func() time.Time
}

// New returns a handle on bucket backed by the REST API and the shared cache.
func New(name string) *Bucket {
	return NewWith(name, restAPI{}, shared)
}

// NewWith returns a handle using a specific backend and cache.
func NewWith(name string, objects ObjectAPI, cache *Cache) *Bucket {
	if cache == nil {
		cache = NewCache()
	}
	return &Bucket{name: name, api: objects, cache: cache, now: time.Now}
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Upload stores data at path.
func (b *Bucket) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error {
	if err := b.api.Upload(ctx, b.name, path, data, contentType, upsert); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	b.forget(path)
	return nil
}

// SignedURL returns a signed URL for path, reusing a cached one until it
// is within 30 seconds of expiring.
func (b *Bucket) SignedURL(ctx context.Context, path string, ttl int) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := b.name + ":" + path

	b.cache.mu.Lock()
	if e, ok := b.cache.signed[key]; ok && e.url != "" && e.expiresAt.Add(-refreshMargin).After(b.now()) {
		b.cache.mu.Unlock()
		return e.url, nil
	}
	b.cache.mu.Unlock()

	v, err, _ := b.cache.group.Do(key, func() (interface{}, error) {
		issued := b.now()
		url, err := b.api.CreateSignedURL(ctx, b.name, path, ttl)
		if err != nil {
			return "", err
		}
		b.cache.mu.Lock()
		b.cache.signed[key] = signedEntry{url: url, expiresAt: issued.Add(time.Duration(ttl) * time.Second)}
		b.cache.mu.Unlock()
		return url, nil
	})
	if err != nil {
		logger.Debug("Signed URL request failed", "bucket", b.name, "path", path, "error", err)
		return "", err
	}
	return v.(string), nil
}

// ResolveURL returns a readable URL for path. Signed URLs work for public
// and private buckets alike, so one is always issued.
func (b *Bucket) ResolveURL(ctx context.Context, path string, ttl int) (string, error) {
	return b.SignedURL(ctx, path, ttl)
}

// PublicURL returns the unsigned address of path.
func (b *Bucket) PublicURL(path string) string {
	return b.api.PublicURL(b.name, path)
}

// IsPublic probes whether the bucket serves objects without a signature.
// A missing object answers 404 on a public bucket and 401/403 on a private
// one. Network failures count as private. The answer is cached per bucket.
func (b *Bucket) IsPublic(ctx context.Context) bool {
	b.cache.mu.Lock()
	if v, ok := b.cache.visibility[b.name]; ok {
		b.cache.mu.Unlock()
		return v
	}
	b.cache.mu.Unlock()

	public := false
	if u := b.PublicURL(visibilityProbe); u != "" {
		status, err := b.api.Head(ctx, u)
		switch {
		case err != nil:
			logger.Debug("Bucket visibility probe failed", "bucket", b.name, "error", err)
		case status == 401 || status == 403:
		default:
			public = true
		}
	}

	b.cache.mu.Lock()
	b.cache.visibility[b.name] = public
	b.cache.mu.Unlock()
	return public
}

// Remove deletes objects and drops their cached URLs.
func (b *Bucket) Remove(ctx context.Context, paths ...string) error {
	if err := b.api.Remove(ctx, b.name, paths); err != nil {
		return fmt.Errorf("remove from %s: %w", b.name, err)
	}
	for _, p := range paths {
		b.forget(p)
	}
	return nil
}

// Walk returns every object path under prefix, descending into folders.
func (b *Bucket) Walk(ctx context.Context, prefix string) ([]string, error) {
	objects, err := b.api.ListObjects(ctx, b.name, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", b.name, prefix, err)
	}

	var paths []string
	for _, o := range objects {
		full := o.Name
		if prefix != "" {
			full = prefix + "/" + o.Name
		}
		if !o.IsFolder() {
			paths = append(paths, full)
			continue
		}
		nested, err := b.Walk(ctx, full)
		if err != nil {
			return nil, err
		}
		paths = append(paths, nested...)
	}
	return paths, nil
}

func (b *Bucket) forget(path string) {
	b.cache.mu.Lock()
	delete(b.cache.signed, b.name+":"+path)
	b.cache.mu.Unlock()
}
