package accounts

import (
	"context"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gramm/media"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/validation"
	"strings"
)

type ProfileUpdate struct {
	FullName string `validate:"max=100"`
	Bio      string `validate:"max=500"`

	Avatar       *media.Upload `validate:"-"`
	RemoveAvatar bool
}

// UpdateProfile edits the user's profile. A replaced or removed avatar is
// deleted from the media store after the change is saved.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.Profile, error) {
	update.FullName = strings.TrimSpace(update.FullName)
	update.Bio = strings.TrimSpace(update.Bio)
	if err := validation.Struct(update); err != nil {
		return nil, err
	}
	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	avatarID := profile.AvatarID
	var uploaded string
	if update.Avatar != nil {
		data, err := s.preprocessor.Thumbnail(update.Avatar.Data, update.Avatar.ContentType)
		if err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, s.config.MediaTimeout)
		uploaded, err = s.store.Upload(callCtx, data, media.OutputMediaType)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("uploading avatar: %w", err)
		}
		avatarID = &uploaded
	} else if update.RemoveAvatar {
		avatarID = nil
	}

	if err := queries.UpdateProfile(s.manager.DB(ctx), userID, update.FullName, update.Bio, avatarID); err != nil {
		if uploaded != "" {
			s.discard(ctx, []string{uploaded})
		}
		return nil, fmt.Errorf("updating profile of user %d: %w", userID, err)
	}

	if old, ok := profile.ExternalID(); ok && (avatarID == nil || *avatarID != old) {
		s.discard(ctx, []string{old})
	}
	profile.FullName = update.FullName
	profile.Bio = update.Bio
	profile.AvatarID = avatarID
	return profile, nil
}

func (s *Service) discard(ctx context.Context, ids []string) {
	failed := media.DeleteAll(context.WithoutCancel(ctx), s.store, ids, s.config.MediaTimeout, 1)
	if len(failed) > 0 {
		log.WithField("media_ids", failed).Warn("Could not delete stored avatar")
	}
}
