// Package memories builds the list of completed items and their moments.
package memories

import (
	"context"
	"sort"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/photos"
	"golang.org/x/sync/errgroup"
)

const maxConcurrent = 6

// Entry is one item shown on the memories view.
type Entry struct {
	Item     api.Item       `json:"item"`
	Photos   []photos.Photo `json:"photos"`
	Memories []api.Memory   `json:"memories"`
}

// Qualifies reports whether an item belongs on the memories view.
func Qualifies(item *api.Item) bool {
	return item.Completed || len(item.Memories) > 0
}

// Build keeps the items that are completed or carry memories, newest
// first, and resolves their photos and memory files. Photos that cannot
// be resolved are dropped; memories keep an empty URL.
func Build(ctx context.Context, items []api.Item, resolve photos.ResolveFunc) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if Qualifies(&item) {
			entries = append(entries, Entry{Item: item})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Item.CreatedAt.After(entries[j].Item.CreatedAt)
	})

	resolved := make([][]*photos.Photo, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i := range entries {
		e := &entries[i]
		slots := make([]*photos.Photo, len(e.Item.Photos))
		resolved[i] = slots

		for j, file := range e.Item.Photos {
			if file == "" {
				continue
			}
			g.Go(func() error {
				uri, err := resolve(gctx, e.Item.ID, file)
				if err != nil {
					logger.Warn("Failed to resolve photo for memories", "file", file, "item_id", e.Item.ID, "error", err)
					return nil
				}
				slots[j] = &photos.Photo{URI: uri, File: file}
				return nil
			})
		}

		e.Memories = make([]api.Memory, len(e.Item.Memories))
		copy(e.Memories, e.Item.Memories)
		for j := range e.Memories {
			m := &e.Memories[j]
			if m.File == "" || m.URL != "" {
				continue
			}
			g.Go(func() error {
				uri, err := resolve(gctx, e.Item.ID, m.File)
				if err != nil {
					logger.Debug("Memory file unresolved", "file", m.File, "item_id", e.Item.ID, "error", err)
					return nil
				}
				m.URL = uri
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range entries {
		entries[i].Photos = make([]photos.Photo, 0, len(resolved[i]))
		for _, p := range resolved[i] {
			if p != nil {
				entries[i].Photos = append(entries[i].Photos, *p)
			}
		}
	}
	return entries
}
