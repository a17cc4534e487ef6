// Package localstate keeps the per-device state that never reaches the
// backend: the active list, the ids of joined lists and each user's profile.
package localstate

import (
	"context"
	"errors"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/store"
)

const (
	KeyActiveList  = "active_list"
	KeyJoinedLists = "joined_lists"
	profilePrefix  = "profile_"
)

// Profile is the locally stored presentation of a user.
type Profile struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	AvatarURI   string `json:"avatarUri,omitempty"`
}

// ProfileKey is the storage key of uid's profile.
func ProfileKey(uid string) string {
	return profilePrefix + uid
}

// State reads and writes local state through a key/value store.
type State struct {
	kv store.KV
}

// New returns a State over kv.
func New(kv store.KV) *State {
	return &State{kv: kv}
}

// ActiveList returns the active list, or nil when none is set. Unreadable
// values are treated as unset.
func (s *State) ActiveList(ctx context.Context) (*api.List, error) {
	var l api.List
	err := store.GetJSON(ctx, s.kv, KeyActiveList, &l)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Warn("Ignoring unreadable active list", "error", err)
		return nil, nil
	}
	if l.ID == "" {
		return nil, nil
	}
	return &l, nil
}

// SetActiveList makes l the active list.
func (s *State) SetActiveList(ctx context.Context, l api.List) error {
	return store.SetJSON(ctx, s.kv, KeyActiveList, l)
}

// ClearActiveList forgets the active list.
func (s *State) ClearActiveList(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyActiveList)
}

// JoinedLists returns the ids of joined lists, newest first.
func (s *State) JoinedLists(ctx context.Context) ([]string, error) {
	var ids []string
	err := store.GetJSON(ctx, s.kv, KeyJoinedLists, &ids)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		logger.Warn("Ignoring unreadable joined lists", "error", err)
		return []string{}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// AddJoined records id as joined, at the front. Known ids are left in place.
func (s *State) AddJoined(ctx context.Context, id string) error {
	ids, err := s.JoinedLists(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return store.SetJSON(ctx, s.kv, KeyJoinedLists, append([]string{id}, ids...))
}

// Forget drops id from the joined lists and clears it as the active list.
func (s *State) Forget(ctx context.Context, id string) error {
	ids, err := s.JoinedLists(ctx)
	if err != nil {
		return err
	}
	next := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	if err := store.SetJSON(ctx, s.kv, KeyJoinedLists, next); err != nil {
		return err
	}

	active, err := s.ActiveList(ctx)
	if err != nil {
		return err
	}
	if active != nil && active.ID == id {
		return s.ClearActiveList(ctx)
	}
	return nil
}

// Profile returns uid's profile. Missing or unreadable profiles are empty.
func (s *State) Profile(ctx context.Context, uid string) (Profile, error) {
	var p Profile
	err := store.GetJSON(ctx, s.kv, ProfileKey(uid), &p)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		logger.Warn("Ignoring unreadable profile", "user_id", uid, "error", err)
		return Profile{}, nil
	}
	return p, nil
}

// SaveProfile stores uid's profile.
func (s *State) SaveProfile(ctx context.Context, uid string, p Profile) error {
	return store.SetJSON(ctx, s.kv, ProfileKey(uid), p)
}

// Reset clears what belongs to a signed-in session: uid's profile, the
// active list and the joined lists.
func (s *State) Reset(ctx context.Context, uid string) error {
	keys := []string{KeyActiveList, KeyJoinedLists}
	if uid != "" {
		keys = append(keys, ProfileKey(uid))
	}
	for _, k := range keys {
		if err := s.kv.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
