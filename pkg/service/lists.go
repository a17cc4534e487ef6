package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/api"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

// InviteScheme prefixes shareable list links.
const InviteScheme = "bucketus://list/"

const inviteCodeLen = 6

type ListService struct {
	d *Deps
}

// NewListService creates a new list service
func NewListService(d *Deps) *ListService {
	return &ListService{d: d}
}

// ListSummary is a list together with its standing for the current user.
type ListSummary struct {
	api.List
	Owned  bool `json:"owned"`
	Active bool `json:"active"`
}

// Lists returns the lists the user owns followed by the ones they joined.
// Owned lists that were also joined keep their joined position.
func (s *ListService) Lists(ctx context.Context) ([]ListSummary, error) {
	creds, err := s.d.session(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.d.State.JoinedLists(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.d.State.ActiveList(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil && !contains(ids, active.ID) {
		ids = append([]string{active.ID}, ids...)
	}

	joined, err := api.ListsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	joined = orderByIDs(joined, ids)

	var owned []api.List
	if creds.Email != "" {
		if owned, err = api.ListsByOwner(ctx, creds.Email); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(joined))
	for _, l := range joined {
		seen[l.ID] = true
	}
	merged := make([]api.List, 0, len(owned)+len(joined))
	for _, l := range owned {
		if !seen[l.ID] {
			merged = append(merged, l)
		}
	}
	merged = append(merged, joined...)

	out := make([]ListSummary, 0, len(merged))
	for _, l := range merged {
		out = append(out, ListSummary{
			List:   l,
			Owned:  creds.Email != "" && l.Owner == creds.Email,
			Active: active != nil && active.ID == l.ID,
		})
	}
	return out, nil
}

// Create makes a list owned by the current user and makes it active.
func (s *ListService) Create(ctx context.Context, name string) (*api.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, clierrors.ValidationError("name", "enter a list name")
	}
	creds, err := s.d.session(ctx)
	if err != nil {
		return nil, err
	}

	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}
	l, err := api.CreateList(ctx, api.NewList{
		Name:       name,
		Owner:      creds.Email,
		InviteCode: code,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created list", "list_id", l.ID, "name", l.Name)
	return l, s.remember(ctx, *l)
}

// Join finds a list by invite code, records it as joined and makes it active.
func (s *ListService) Join(ctx context.Context, code string) (*api.List, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, clierrors.ValidationError("code", "enter an invite code")
	}
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}

	l, err := api.ListByInviteCode(ctx, code)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("list with invite code", code).
				WithSuggestion("Check the code with the list owner")
		}
		return nil, err
	}
	logger.Info("Joined list", "list_id", l.ID)
	return l, s.remember(ctx, *l)
}

func (s *ListService) remember(ctx context.Context, l api.List) error {
	if err := s.d.State.AddJoined(ctx, l.ID); err != nil {
		return err
	}
	return s.d.State.SetActiveList(ctx, l)
}

// Use makes a known list active. ref is a list id, an invite link or a
// case-insensitive name.
func (s *ListService) Use(ctx context.Context, ref string) (*api.List, error) {
	l, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	return l, s.d.State.SetActiveList(ctx, *l)
}

// Active returns the active list, refreshed from the backend.
func (s *ListService) Active(ctx context.Context) (*api.List, error) {
	if _, err := s.d.session(ctx); err != nil {
		return nil, err
	}
	active, err := s.d.activeList(ctx)
	if err != nil {
		return nil, err
	}

	fresh, err := api.GetList(ctx, active.ID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("list", active.ID).
				WithSuggestion("The list may have been deleted. Pick another with 'buckit list use'")
		}
		return nil, err
	}
	if *fresh != *active {
		if err := s.d.State.SetActiveList(ctx, *fresh); err != nil {
			logger.Warn("Failed to update active list", "error", err)
		}
	}
	return fresh, nil
}

// LeaveResult tells whether a list was deleted or only left.
type LeaveResult struct {
	List    api.List `json:"list"`
	Deleted bool     `json:"deleted"`
}

// Leave deletes the list when the current user owns it, otherwise leaves it
// locally. Either way it is forgotten locally.
func (s *ListService) Leave(ctx context.Context, ref string) (*LeaveResult, error) {
	creds, err := s.d.session(ctx)
	if err != nil {
		return nil, err
	}
	l, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}

	res := &LeaveResult{List: *l}
	if creds.Email != "" && creds.Email == l.Owner {
		if err := api.DeleteList(ctx, l.ID); err != nil {
			return nil, err
		}
		res.Deleted = true
	}
	if err := s.d.State.Forget(ctx, l.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// InviteLink returns the shareable link for a list.
func InviteLink(l api.List) string {
	return InviteScheme + l.ID
}

// Invite returns the invite code and link of a list, defaulting to the active one.
func (s *ListService) Invite(ctx context.Context, ref string) (*api.List, string, error) {
	var (
		l   *api.List
		err error
	)
	if ref == "" {
		l, err = s.Active(ctx)
	} else {
		l, err = s.find(ctx, ref)
	}
	if err != nil {
		return nil, "", err
	}
	return l, InviteLink(*l), nil
}

// PurgeResult counts what Purge removed.
type PurgeResult struct {
	ListID string `json:"list_id"`
	Files  int    `json:"files"`
}

// Purge removes a list's items, the list row and every stored file under
// the list's prefix. Only the owner may purge.
func (s *ListService) Purge(ctx context.Context, ref string) (*PurgeResult, error) {
	creds, err := s.d.session(ctx)
	if err != nil {
		return nil, err
	}
	l, err := s.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if l.Owner != creds.Email {
		return nil, clierrors.ForbiddenError().WithSuggestion("Only the list owner can purge it")
	}

	if err := api.DeleteItemsByList(ctx, l.ID); err != nil {
		return nil, fmt.Errorf("failed to delete items: %w", err)
	}
	if err := api.DeleteList(ctx, l.ID); err != nil {
		return nil, fmt.Errorf("failed to delete list: %w", err)
	}

	res := &PurgeResult{ListID: l.ID}
	files, err := s.d.Bucket.Walk(ctx, l.ID)
	if err != nil {
		logger.Warn("Failed to list stored files", "list_id", l.ID, "error", err)
	} else if len(files) > 0 {
		if err := s.d.Bucket.Remove(ctx, files...); err != nil {
			logger.Warn("Failed to remove stored files", "list_id", l.ID, "error", err)
		} else {
			res.Files = len(files)
			logger.Info("Removed stored files", "bucket", s.d.Bucket.Name(), "list_id", l.ID, "count", len(files))
		}
	}

	if err := s.d.Pending.Clear(ctx, l.ID); err != nil {
		logger.Warn("Failed to clear pending uploads", "list_id", l.ID, "error", err)
	}
	if err := s.d.State.Forget(ctx, l.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// find resolves ref against the user's lists.
func (s *ListService) find(ctx context.Context, ref string) (*api.List, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), InviteScheme)
	if ref == "" {
		return nil, clierrors.ValidationError("list", "name or id required")
	}

	lists, err := s.Lists(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.ID == ref {
			return &l.List, nil
		}
	}
	var match *api.List
	for _, l := range lists {
		if strings.EqualFold(l.Name, ref) {
			if match != nil {
				return nil, clierrors.ConflictError(fmt.Sprintf("more than one list is named %q", ref)).
					WithSuggestion("Use the list id instead")
			}
			match = &l.List
		}
	}
	if match != nil {
		return match, nil
	}

	// a link to a list that was never joined on this device
	l, err := api.GetList(ctx, ref)
	if err == nil {
		return l, nil
	}
	if api.IsNotFound(err) || isBadRequest(err) {
		return nil, clierrors.NotFoundError("list", ref)
	}
	return nil, err
}

// NewInviteCode returns six random upper-case letters and digits.
func NewInviteCode() (string, error) {
	code, err := randomToken(inviteCodeLen)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// orderByIDs sorts lists into the order of ids.
func orderByIDs(lists []api.List, ids []string) []api.List {
	byID := make(map[string]api.List, len(lists))
	for _, l := range lists {
		byID[l.ID] = l
	}
	out := make([]api.List, 0, len(lists))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
			delete(byID, id)
		}
	}
	return out
}
