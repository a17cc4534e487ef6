package service

import (
	"context"
	"sort"

	"github.com/Kush1612/BuckIt/pkg/pending"
)

type PendingService struct {
	d *Deps
}

// NewPendingService creates a new pending-upload service
func NewPendingService(d *Deps) *PendingService {
	return &PendingService{d: d}
}

// PendingCount is the number of pending uploads cached for one list.
type PendingCount struct {
	ListID string `json:"list_id"`
	Count  int    `json:"count"`
}

// Counts returns the cached upload counts of every list, by list id.
func (s *PendingService) Counts(ctx context.Context) []PendingCount {
	counts := s.d.Pending.Counts(ctx)
	out := make([]PendingCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, PendingCount{ListID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListID < out[j].ListID })
	return out
}

// Uploads returns the pending uploads of listID, or of the active list
// when listID is empty.
func (s *PendingService) Uploads(ctx context.Context, listID string) (string, []pending.Upload, error) {
	listID, err := s.listOrActive(ctx, listID)
	if err != nil {
		return "", nil, err
	}
	return listID, s.d.Pending.ForList(ctx, listID), nil
}

// Clear drops the pending uploads of listID, or of the active list.
func (s *PendingService) Clear(ctx context.Context, listID string) (string, error) {
	listID, err := s.listOrActive(ctx, listID)
	if err != nil {
		return "", err
	}
	return listID, s.d.Pending.Clear(ctx, listID)
}

func (s *PendingService) listOrActive(ctx context.Context, listID string) (string, error) {
	if listID != "" {
		return listID, nil
	}
	l, err := s.d.activeList(ctx)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}
