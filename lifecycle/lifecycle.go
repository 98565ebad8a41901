// Package lifecycle removes users together with the state that the database
// cascade cannot reach.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gramm/media"
	"gramm/monitoring"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"time"
)

const (
	stepFollows     = "follows"
	stepSocialAuths = "social_auths"
	stepMedia       = "media"
	stepUser        = "user"
)

type Config struct {
	MediaTimeout     time.Duration
	MediaConcurrency int
}

type Manager struct {
	manager *storage.Manager
	store   media.Store
	config  Config
}

func NewManager(manager *storage.Manager, store media.Store, config Config) *Manager {
	if config.MediaTimeout <= 0 {
		config.MediaTimeout = 10 * time.Second
	}
	if config.MediaConcurrency < 1 {
		config.MediaConcurrency = 4
	}
	return &Manager{manager: manager, store: store, config: config}
}

// DeleteUser runs the deletion protocol for one user inside a single transaction:
//  1. follow edges in both directions,
//  2. external OAuth links, when that table exists,
//  3. stored media (avatar and every post image),
//  4. the user row, whose cascade removes profile, posts, images, likes and comments.
//
// Steps 1-3 only log their failures. The call fails only when step 4 does.
func (m *Manager) DeleteUser(ctx context.Context, userID uint) error {
	entry := log.WithField("user_id", userID)

	user, err := m.manager.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	err = m.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		m.softStep(tx, entry, stepFollows, func(tx *gorm.DB) error {
			removed, err := queries.DeleteFollowsOf(tx, userID)
			if err == nil {
				entry.WithFields(log.Fields{"step": stepFollows, "removed": removed}).Debug("Deleted follow edges")
			}
			return err
		})

		if queries.HasSocialAuthTable(tx) {
			m.softStep(tx, entry, stepSocialAuths, func(tx *gorm.DB) error {
				removed, err := queries.DeleteSocialAuths(tx, userID)
				if err == nil {
					entry.WithFields(log.Fields{"step": stepSocialAuths, "removed": removed}).Debug("Deleted OAuth links")
				}
				return err
			})
		} else {
			entry.WithField("step", stepSocialAuths).Debug("OAuth links table absent, skipping")
		}

		m.deleteMedia(ctx, tx, entry, user)

		removed, err := queries.DeleteUser(tx, userID)
		if err != nil {
			entry.WithField("step", stepUser).Errorf("Error deleting user: %v", err)
			return err
		}
		if removed == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		monitoring.UserDeletions.WithLabelValues("failure").Inc()
		return fmt.Errorf("deleting user %d: %w", userID, err)
	}
	monitoring.UserDeletions.WithLabelValues("success").Inc()
	entry.Info("User deleted")
	return nil
}

// DeleteUsers deletes each user with its own protocol run. It continues past
// failures and reports how many users were removed.
func (m *Manager) DeleteUsers(ctx context.Context, userIDs []uint) (int, error) {
	var errs []error
	deleted := 0
	for _, userID := range userIDs {
		if err := m.DeleteUser(ctx, userID); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// softStep runs fn behind a savepoint; on failure the step's writes are rolled
// back and the protocol carries on.
func (m *Manager) softStep(tx *gorm.DB, entry *log.Entry, step string, fn func(tx *gorm.DB) error) {
	savepoint := "before_" + step
	stepEntry := entry.WithField("step", step)
	if err := tx.SavePoint(savepoint).Error; err != nil {
		stepEntry.Warningf("Could not create savepoint, skipping step: %v", err)
		monitoring.DeletionStepFailures.WithLabelValues(step).Inc()
		return
	}
	if err := fn(tx); err != nil {
		stepEntry.Warningf("Step failed, continuing: %v", err)
		monitoring.DeletionStepFailures.WithLabelValues(step).Inc()
		if err := tx.RollbackTo(savepoint).Error; err != nil {
			stepEntry.Errorf("Error rolling back to savepoint: %v", err)
		}
	}
}

func (m *Manager) deleteMedia(ctx context.Context, tx *gorm.DB, entry *log.Entry, user *models.User) {
	stepEntry := entry.WithField("step", stepMedia)

	var ids []string
	if user.Profile != nil {
		ids = append(ids, media.ExternalIDs(*user.Profile)...)
	}
	images, err := queries.ImagesByAuthor(tx, user.ID)
	if err != nil {
		stepEntry.Warningf("Could not list post images: %v", err)
		monitoring.DeletionStepFailures.WithLabelValues(stepMedia).Inc()
	}
	ids = append(ids, media.ExternalIDs(images...)...)
	if len(ids) == 0 {
		return
	}

	failed := media.DeleteAll(ctx, m.store, ids, m.config.MediaTimeout, m.config.MediaConcurrency)
	if len(failed) > 0 {
		monitoring.DeletionStepFailures.WithLabelValues(stepMedia).Inc()
		stepEntry.WithField("media_ids", failed).Warningf("Could not delete %d of %d stored files", len(failed), len(ids))
		return
	}
	stepEntry.WithField("removed", len(ids)).Debug("Deleted stored media")
}
