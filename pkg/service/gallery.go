package service

import (
	"context"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/gallery"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/memories"
)

type GalleryService struct {
	d *Deps
}

// NewGalleryService creates a new gallery service
func NewGalleryService(d *Deps) *GalleryService {
	return &GalleryService{d: d}
}

// Gallery groups the active list's photos by month and day. Pending uploads
// that the backend now serves are dropped from the local cache.
func (s *GalleryService) Gallery(ctx context.Context) (*gallery.Gallery, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return nil, err
	}

	items, err := api.ItemsByList(ctx, l.ID, api.ItemQuery{})
	if err != nil {
		return nil, err
	}
	g := gallery.Build(ctx, items, s.d.Pending.ForList(ctx, l.ID), s.d.resolver(l.ID).ResolveFile, s.d.now())

	if n, err := s.d.Pending.Reconcile(ctx, l.ID, g.Confirmed); err != nil {
		logger.Warn("Failed to reconcile pending uploads", "list_id", l.ID, "error", err)
	} else if n > 0 {
		logger.Debug("Evicted confirmed uploads", "list_id", l.ID, "count", n)
	}
	return g, nil
}

type MemoriesService struct {
	d *Deps
}

// NewMemoriesService creates a new memories service
func NewMemoriesService(d *Deps) *MemoriesService {
	return &MemoriesService{d: d}
}

// Memories returns the active list's completed items and the moments
// recorded on them, newest first.
func (s *MemoriesService) Memories(ctx context.Context) ([]memories.Entry, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return nil, err
	}

	items, err := api.ItemsByList(ctx, l.ID, api.ItemQuery{})
	if err != nil {
		return nil, err
	}
	return memories.Build(ctx, items, s.d.resolver(l.ID).ResolveFile), nil
}
