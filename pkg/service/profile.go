package service

import (
	"context"
	"fmt"
	"strings"

	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/localstate"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

// avatarFolder holds every user's avatar in the storage bucket.
const avatarFolder = "avatars"

type ProfileService struct {
	d *Deps
}

// NewProfileService creates a new profile service
func NewProfileService(d *Deps) *ProfileService {
	return &ProfileService{d: d}
}

// ProfileView is the signed-in user's identity and local profile.
type ProfileView struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	localstate.Profile
}

// Show returns the signed-in user's profile.
func (s *ProfileService) Show(ctx context.Context) (*ProfileView, error) {
	creds, err := s.d.session(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.d.State.Profile(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{UserID: creds.UserID, Email: creds.Email, Profile: p}, nil
}

// ProfileUpdate names the fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string
	Username    *string
}

// Set updates the display name and username.
func (s *ProfileService) Set(ctx context.Context, u ProfileUpdate) (*ProfileView, error) {
	view, err := s.Show(ctx)
	if err != nil {
		return nil, err
	}
	if u.DisplayName != nil {
		view.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.Username != nil {
		name := strings.TrimPrefix(strings.TrimSpace(*u.Username), "@")
		if strings.ContainsAny(name, " \t") {
			return nil, clierrors.ValidationError("username", "cannot contain spaces")
		}
		view.Username = name
	}
	if err := s.d.State.SaveProfile(ctx, view.UserID, view.Profile); err != nil {
		return nil, err
	}
	return view, nil
}

// AvatarResult is the updated profile. Warning is set when the avatar could
// not be stored remotely and the local file is used instead.
type AvatarResult struct {
	*ProfileView
	Warning string `json:"warning,omitempty"`
}

// Avatar uploads a new avatar and points the profile at it.
func (s *ProfileService) Avatar(ctx context.Context, local string) (*AvatarResult, error) {
	view, err := s.Show(ctx)
	if err != nil {
		return nil, err
	}
	data, err := readPhoto(local)
	if err != nil {
		return nil, err
	}

	ext, ct := imageExt(local)
	key := fmt.Sprintf("%s/avatar_%s_%d%s", avatarFolder, view.UserID, s.d.now().UnixMilli(), ext)

	var warning error
	uri := localURI(local)
	if err := s.d.Bucket.Upload(ctx, key, data, ct, true); err != nil {
		warning = clierrors.StorageError("upload avatar", err)
	} else if signed, err := s.d.Bucket.SignedURL(ctx, key, s.d.AvatarTTL); err != nil {
		warning = clierrors.StorageError("sign avatar url", err)
	} else {
		uri = signed
	}
	res := &AvatarResult{ProfileView: view}
	if warning != nil {
		logger.Warn("Keeping local avatar", "path", local, "error", warning)
		res.Warning = warning.Error()
	}

	view.AvatarURI = uri
	if err := s.d.State.SaveProfile(ctx, view.UserID, view.Profile); err != nil {
		return nil, err
	}
	return res, nil
}
