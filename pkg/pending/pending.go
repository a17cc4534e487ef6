// Package pending keeps the optimistic-upload registry: photos that were
// uploaded to storage but whose item row or realtime notification has not
// come back yet. Views merge these records in so a fresh photo shows up
// immediately, and evict them once the authoritative row lists the file.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/store"
	json "github.com/json-iterator/go"
)

// StorageKey is the local storage key the registry is persisted under.
const StorageKey = "PENDING_UPLOADS_V1"

const dateLayout = "2006-01-02T15:04:05.000Z07:00"

// Upload is one optimistic upload record.
type Upload struct {
	File   string  `json:"file"`
	URI    string  `json:"uri"`
	Date   string  `json:"date"`
	Title  string  `json:"title"`
	ItemID *string `json:"itemId"`
}

// BelongsTo reports whether the upload was made for itemID.
func (u Upload) BelongsTo(itemID string) bool {
	return u.ItemID != nil && *u.ItemID != "" && *u.ItemID == itemID
}

// Registry maps list id to pending uploads, newest first.
type Registry struct {
	kv store.KV

	mu     sync.Mutex
	loaded bool
	lists  map[string][]Upload
	now    func() time.Time
}

// New returns a registry persisted in kv. Nothing is read until first use.
func New(kv store.KV) *Registry {
	return &Registry{
		kv:    kv,
		lists: map[string][]Upload{},
		now:   time.Now,
	}
}

// FormatDate renders t the way upload dates are stored.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// load reads the persisted map once. Corrupt data starts an empty registry.
// A failed read leaves the registry unloaded so mutators do not overwrite
// records they never saw.
func (r *Registry) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	raw, err := r.kv.Get(ctx, StorageKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Warn("Failed to read pending uploads", "error", err)
		return fmt.Errorf("failed to read pending uploads: %w", err)
	}
	r.loaded = true
	r.lists = map[string][]Upload{}
	if err != nil {
		return nil
	}

	var m map[string][]Upload
	if err := json.UnmarshalFromString(raw, &m); err != nil {
		logger.Warn("Discarding unreadable pending uploads", "error", err)
		return nil
	}
	if m != nil {
		r.lists = m
	}
	return nil
}

func (r *Registry) save(ctx context.Context) error {
	raw, err := json.MarshalToString(r.lists)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, StorageKey, raw)
}

// Add records an upload at the front of listID's queue. An empty list id is ignored.
func (r *Registry) Add(ctx context.Context, listID string, u Upload) error {
	if listID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return err
	}

	if u.Date == "" {
		u.Date = FormatDate(r.now())
	}

	existing := r.lists[listID]
	next := make([]Upload, 0, len(existing)+1)
	next = append(next, u)
	next = append(next, existing...)
	r.lists[listID] = next

	logger.Debug("Pending upload added", "list_id", listID, "file", u.File)
	return r.save(ctx)
}

// ForList returns a copy of listID's pending uploads, newest first.
func (r *Registry) ForList(ctx context.Context, listID string) []Upload {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.load(ctx)

	src := r.lists[listID]
	out := make([]Upload, len(src))
	copy(out, src)
	return out
}

// ForItem returns the pending uploads of listID that belong to itemID.
func (r *Registry) ForItem(ctx context.Context, listID, itemID string) []Upload {
	var out []Upload
	for _, u := range r.ForList(ctx, listID) {
		if u.BelongsTo(itemID) {
			out = append(out, u)
		}
	}
	return out
}

// RemoveByFile drops every pending record of listID with the given file name.
// The list entry disappears once it has no records left.
func (r *Registry) RemoveByFile(ctx context.Context, listID, file string) error {
	if listID == "" {
		return nil
	}
	_, err := r.Reconcile(ctx, listID, []string{file})
	return err
}

// Reconcile evicts records of listID whose file appears in confirmed and
// returns how many were removed. Nothing is written when nothing changed.
func (r *Registry) Reconcile(ctx context.Context, listID string, confirmed []string) (int, error) {
	if listID == "" || len(confirmed) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return 0, err
	}

	existing, ok := r.lists[listID]
	if !ok {
		return 0, nil
	}

	done := make(map[string]struct{}, len(confirmed))
	for _, f := range confirmed {
		done[f] = struct{}{}
	}

	kept := make([]Upload, 0, len(existing))
	for _, u := range existing {
		if _, hit := done[u.File]; !hit {
			kept = append(kept, u)
		}
	}

	removed := len(existing) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if len(kept) > 0 {
		r.lists[listID] = kept
	} else {
		delete(r.lists, listID)
	}

	logger.Debug("Pending uploads reconciled", "list_id", listID, "removed", removed)
	return removed, r.save(ctx)
}

// Clear forgets every pending upload of listID.
func (r *Registry) Clear(ctx context.Context, listID string) error {
	if listID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return err
	}
	delete(r.lists, listID)
	return r.save(ctx)
}

// Counts returns the number of pending uploads per list.
func (r *Registry) Counts(ctx context.Context) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.load(ctx)

	out := make(map[string]int, len(r.lists))
	for id, ups := range r.lists {
		out[id] = len(ups)
	}
	return out
}
