package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/api"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/pending"
	"github.com/Kush1612/BuckIt/pkg/photos"
)

type ItemService struct {
	d *Deps
}

// NewItemService creates a new item service
func NewItemService(d *Deps) *ItemService {
	return &ItemService{d: d}
}

// NormalizeCategory maps user input onto a stored category, ignoring case.
// An empty value is "All" when allowAll is set and Travel otherwise.
func NormalizeCategory(c string, allowAll bool) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		if allowAll {
			return api.CategoryAll, nil
		}
		return api.CategoryTravel, nil
	}
	if allowAll && strings.EqualFold(c, api.CategoryAll) {
		return api.CategoryAll, nil
	}
	for _, v := range api.Categories {
		if strings.EqualFold(v, c) {
			return v, nil
		}
	}
	return "", clierrors.ValidationError("category", fmt.Sprintf("must be one of %s", strings.Join(api.Categories, ", ")))
}

// Items lists the active list's items, newest first unless q says otherwise.
func (s *ItemService) Items(ctx context.Context, q api.ItemQuery) ([]api.Item, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return nil, err
	}
	if q.Category, err = NormalizeCategory(q.Category, true); err != nil {
		return nil, err
	}
	return api.ItemsByList(ctx, l.ID, q)
}

// ItemDetail is an item with its photos resolved to URLs.
type ItemDetail struct {
	api.Item
	ResolvedPhotos []photos.Photo `json:"resolved_photos"`
}

// Show fetches one item and resolves its photos, pending ones first.
func (s *ItemService) Show(ctx context.Context, id string) (*ItemDetail, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	ups := s.d.Pending.ForItem(ctx, item.ListID, item.ID)
	return &ItemDetail{
		Item:           *item,
		ResolvedPhotos: s.d.resolver(item.ListID).ResolveItem(ctx, item, ups),
	}, nil
}

func (s *ItemService) get(ctx context.Context, id string) (*api.Item, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, clierrors.ValidationError("id", "item id required")
	}
	item, err := api.GetItem(ctx, id)
	if err != nil {
		if api.IsNotFound(err) || isBadRequest(err) {
			return nil, clierrors.NotFoundError("item", id)
		}
		return nil, err
	}
	return item, nil
}

// NewItemInput is what a user supplies for a new item. Photos are local
// file paths.
type NewItemInput struct {
	Title       string
	Description string
	Category    string
	Secret      bool
	Photos      []string
}

// AddResult is the created item plus any photos that failed to upload.
type AddResult struct {
	Item     api.Item `json:"item"`
	Warnings []string `json:"warnings,omitempty"`
}

// Add creates an item on the active list, then uploads its photos under
// <list>/<item>/ and records the ones that made it.
func (s *ItemService) Add(ctx context.Context, in NewItemInput) (*AddResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, clierrors.ValidationError("title", "enter a title")
	}
	category, err := NormalizeCategory(in.Category, false)
	if err != nil {
		return nil, err
	}
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return nil, err
	}

	item, err := api.CreateItem(ctx, api.NewItem{
		ListID:      l.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Secret:      in.Secret,
		Photos:      []string{},
		Memories:    []api.Memory{},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created item", "item_id", item.ID, "list_id", l.ID)

	res := &AddResult{Item: *item}
	if len(in.Photos) == 0 {
		return res, nil
	}

	now := s.d.now()
	var uploaded []string
	for i, local := range in.Photos {
		data, err := os.ReadFile(local)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", local, err))
			continue
		}
		ext, ct := imageExt(local)
		name := photoName(now, i, ext)
		if err := s.d.Bucket.Upload(ctx, path.Join(l.ID, item.ID, name), data, ct, false); err != nil {
			logger.Warn("Photo upload failed", "file", local, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", local, err))
			continue
		}
		uploaded = append(uploaded, name)
	}
	if len(uploaded) == 0 {
		return res, nil
	}

	updated, err := api.UpdateItem(ctx, item.ID, map[string]interface{}{"photos": uploaded})
	if err != nil {
		return res, fmt.Errorf("item created but photos were not recorded: %w", err)
	}
	res.Item = *updated
	return res, nil
}

// Complete marks an item done.
func (s *ItemService) Complete(ctx context.Context, id string) (*api.Item, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Completed {
		return item, nil
	}
	return api.UpdateItem(ctx, item.ID, map[string]interface{}{
		"completed":    true,
		"completed_at": api.FormatTime(s.d.now()),
	})
}

// PhotoResult reports an added photo.
type PhotoResult struct {
	Item api.Item `json:"item"`
	File string   `json:"file"`
	URI  string   `json:"uri"`
	Size int64    `json:"size"`
}

// AddPhoto uploads a photo with a note to an item. The upload is registered
// as pending until the item row records it, so it shows up in views even if
// the row update fails.
func (s *ItemService) AddPhoto(ctx context.Context, itemID, local, note string) (*PhotoResult, error) {
	item, err := s.get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	data, err := readPhoto(local)
	if err != nil {
		return nil, err
	}

	now := s.d.now()
	ext, ct := imageExt(local)
	token, err := randomToken(10)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%d_%s%s", now.UnixMilli(), token, ext)
	if err := s.d.Bucket.Upload(ctx, path.Join(item.ListID, item.ID, name), data, ct, false); err != nil {
		return nil, clierrors.StorageError("upload photo", err)
	}

	uri, err := s.d.resolver(item.ListID).ResolveFile(ctx, item.ID, name)
	if err != nil {
		logger.Debug("Using local path for fresh photo", "file", name, "error", err)
		uri = localURI(local)
	}

	date := pending.FormatDate(now)
	id := item.ID
	if err := s.d.Pending.Add(ctx, item.ListID, pending.Upload{
		File:   name,
		URI:    uri,
		Date:   date,
		Title:  item.Title,
		ItemID: &id,
	}); err != nil {
		logger.Warn("Failed to register pending upload", "file", name, "error", err)
	}

	// re-read so concurrent edits from other members are kept
	fresh, err := api.GetItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	photosOut := append(append([]string{}, fresh.Photos...), name)
	memoriesOut := append(append([]api.Memory{}, fresh.Memories...), api.Memory{
		File: name,
		Note: strings.TrimSpace(note),
		Date: date,
	})
	updated, err := api.UpdateItem(ctx, item.ID, map[string]interface{}{
		"photos":   photosOut,
		"memories": memoriesOut,
	})
	if err != nil {
		return nil, err
	}

	if err := s.d.Pending.RemoveByFile(ctx, item.ListID, name); err != nil {
		logger.Warn("Failed to clear pending upload", "file", name, "error", err)
	}
	return &PhotoResult{Item: *updated, File: name, URI: uri, Size: int64(len(data))}, nil
}

func readPhoto(local string) ([]byte, error) {
	data, err := os.ReadFile(local)
	if errors.Is(err, os.ErrNotExist) {
		return nil, clierrors.FileNotFoundError(local)
	}
	if err != nil {
		return nil, clierrors.ValidationError("photo", err.Error())
	}
	return data, nil
}

func localURI(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return "file://" + filepath.ToSlash(p)
}
