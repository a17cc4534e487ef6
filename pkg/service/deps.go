package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/auth"
	"github.com/Kush1612/BuckIt/pkg/config"
	"github.com/Kush1612/BuckIt/pkg/credentials"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/localstate"
	"github.com/Kush1612/BuckIt/pkg/pending"
	"github.com/Kush1612/BuckIt/pkg/photos"
	"github.com/Kush1612/BuckIt/pkg/storage"
	"github.com/Kush1612/BuckIt/pkg/store"
)

// Deps are the handles shared by every service.
type Deps struct {
	KV       store.KV
	Pending  *pending.Registry
	State    *localstate.State
	Bucket   *storage.Bucket
	Session  *auth.SessionRecovery
	Notifier *auth.Notifier

	URLTTL    int
	AvatarTTL int

	now   func() time.Time
	close func() error
}

// Open opens the local store and wires the services' dependencies from config.
func Open() (*Deps, error) {
	s, err := store.Open(config.GetString("store.path"))
	if err != nil {
		return nil, clierrors.NewCLIError(clierrors.ErrorTypeValidation, "failed to open local state", err)
	}
	d := NewDeps(s, storage.New(config.GetString("storage.bucket")))
	d.close = s.Close
	return d, nil
}

// NewDeps wires services over an existing store and bucket.
func NewDeps(kv store.KV, bucket *storage.Bucket) *Deps {
	urlTTL := config.GetInt("storage.signed_url_ttl")
	if urlTTL <= 0 {
		urlTTL = storage.DefaultTTL
	}
	avatarTTL := config.GetInt("storage.avatar_url_ttl")
	if avatarTTL <= 0 {
		avatarTTL = 60 * 60 * 24 * 365
	}

	return &Deps{
		KV:        kv,
		Pending:   pending.New(kv),
		State:     localstate.New(kv),
		Bucket:    bucket,
		Session:   auth.NewSessionRecovery(),
		Notifier:  auth.Default,
		URLTTL:    urlTTL,
		AvatarTTL: avatarTTL,
		now:       time.Now,
	}
}

// Close releases the local store.
func (d *Deps) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

func (d *Deps) session(ctx context.Context) (*credentials.Credentials, error) {
	return d.Session.Session(ctx)
}

// activeList returns the active list or a NoActiveListError.
func (d *Deps) activeList(ctx context.Context) (*api.List, error) {
	l, err := d.State.ActiveList(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, clierrors.NoActiveListError()
	}
	return l, nil
}

func (d *Deps) resolver(listID string) *photos.Resolver {
	return photos.NewResolver(d.Bucket, listID, d.URLTTL)
}

const randAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomToken returns n random lowercase base-36 characters drawn from
// random UUIDs. Version and variant bytes are skipped.
func randomToken(n int) (string, error) {
	var sb strings.Builder
	for sb.Len() < n {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("failed to generate random token: %w", err)
		}
		for i, b := range id {
			if i == 6 || i == 8 || sb.Len() == n {
				continue
			}
			sb.WriteByte(randAlphabet[int(b)%len(randAlphabet)])
		}
	}
	return sb.String(), nil
}

// photoName builds a storage file name: <unix ms>_<index>_<random><ext>.
func photoName(now time.Time, index int, ext string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%d_%d_%s%s", now.UnixMilli(), index, token, ext)
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
}

// imageExt returns the lowercase extension of path and its content type.
// Unknown extensions are stored as jpeg.
func imageExt(path string) (string, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		if ext == ".jpeg" {
			ext = ".jpg"
		}
		return ext, ct
	}
	return ".jpg", "image/jpeg"
}
