// Package photos turns the file names stored on items into readable URLs.
package photos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/pending"
	"golang.org/x/sync/errgroup"
)

// ErrUnresolved is returned when no candidate path produced a URL.
var ErrUnresolved = errors.New("photo could not be resolved")

// maxConcurrent bounds signed-URL requests per item.
const maxConcurrent = 4

var slashes = regexp.MustCompile(`/+`)

// URLResolver issues a readable URL for a storage path.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string, ttl int) (string, error)
}

// ResolveFunc resolves one stored file of an item to a URL.
// Resolver.ResolveFile has this shape.
type ResolveFunc func(ctx context.Context, itemID, file string) (string, error)

// Photo is one displayable photo of an item.
type Photo struct {
	URI     string `json:"uri"`
	File    string `json:"file"`
	Pending bool   `json:"pending,omitempty"`
}

// IsRemote reports whether a stored value is already a full URL.
func IsRemote(file string) bool {
	return strings.HasPrefix(file, "http")
}

// CandidatePaths lists the storage paths file may live at, in the order
// they are tried: nested under the item, flat under the list, then nested
// with a leading item-id prefix removed from the file name.
func CandidatePaths(listID, itemID, file string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		p = slashes.ReplaceAllString(p, "/")
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	add(listID + "/" + itemID + "/" + file)
	add(listID + "/" + file)

	if itemID != "" && file != itemID && strings.HasPrefix(file, itemID) {
		rest := strings.TrimPrefix(file, itemID)
		if strings.HasPrefix(rest, "_") || strings.HasPrefix(rest, "-") {
			rest = rest[1:]
		}
		if rest != "" {
			add(listID + "/" + itemID + "/" + rest)
		}
	}
	return out
}

// Resolver resolves photo file names within one list.
type Resolver struct {
	urls   URLResolver
	listID string
	ttl    int
}

// NewResolver returns a resolver for listID issuing URLs valid for ttl seconds.
func NewResolver(urls URLResolver, listID string, ttl int) *Resolver {
	return &Resolver{urls: urls, listID: listID, ttl: ttl}
}

// ListID returns the list the resolver is scoped to.
func (r *Resolver) ListID() string {
	return r.listID
}

// ResolveFile returns a URL for file, trying each candidate path in turn.
// Full URLs are returned unchanged.
func (r *Resolver) ResolveFile(ctx context.Context, itemID, file string) (string, error) {
	if file == "" {
		return "", ErrUnresolved
	}
	if IsRemote(file) {
		return file, nil
	}

	for _, p := range CandidatePaths(r.listID, itemID, file) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		url, err := r.urls.ResolveURL(ctx, p, r.ttl)
		if err == nil && url != "" {
			logger.Debug("Photo resolved", "file", file, "path", p)
			return url, nil
		}
		logger.Debug("Photo path failed", "path", p, "error", err)
	}
	return "", fmt.Errorf("%w: %s (list %s, item %s)", ErrUnresolved, file, r.listID, itemID)
}

// ResolveItem returns the item's displayable photos. Files that cannot be
// resolved are logged and skipped. Pending uploads for the item are placed
// in front unless the item already lists their file.
func (r *Resolver) ResolveItem(ctx context.Context, item *api.Item, ups []pending.Upload) []Photo {
	resolved := make([]*Photo, len(item.Photos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, file := range item.Photos {
		if file == "" {
			continue
		}
		g.Go(func() error {
			url, err := r.ResolveFile(gctx, item.ID, file)
			if err != nil {
				logger.Warn("Failed to resolve photo", "file", file, "list_id", r.listID, "item_id", item.ID, "error", err)
				return nil
			}
			resolved[i] = &Photo{URI: url, File: file}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Photo, 0, len(item.Photos)+len(ups))
	for _, p := range resolved {
		if p != nil {
			out = append(out, *p)
		}
	}

	for _, u := range ups {
		if !u.BelongsTo(item.ID) || containsFile(out, u.File) {
			continue
		}
		out = append([]Photo{{URI: u.URI, File: u.File, Pending: true}}, out...)
	}
	return out
}

func containsFile(photos []Photo, file string) bool {
	for _, p := range photos {
		if p.File == file {
			return true
		}
	}
	return false
}
