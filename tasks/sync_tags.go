package tasks

import (
	"context"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/tags"
)

const (
	syncBatchSize     = 100
	syncProgressEvery = 10
)

type SyncReport struct {
	Total  int64
	Synced int
	DryRun bool
}

// TagSyncer rebuilds post tags from captions for posts written before tag
// extraction existed or while it was broken.
type TagSyncer struct {
	manager *storage.Manager
	tags    *tags.Synchronizer
}

func NewTagSyncer(manager *storage.Manager) *TagSyncer {
	return &TagSyncer{manager: manager, tags: tags.NewSynchronizer(manager)}
}

// SyncTags re-extracts the hashtags of every post whose caption contains '#'.
// With dryRun set, posts are only counted.
func (s *TagSyncer) SyncTags(ctx context.Context, dryRun bool) (SyncReport, error) {
	report := SyncReport{DryRun: dryRun}
	query := s.manager.DB(ctx).Model(&models.Post{}).Where("caption LIKE ?", "%#%")
	if err := query.Session(&gorm.Session{}).Count(&report.Total).Error; err != nil {
		return report, fmt.Errorf("counting posts: %w", err)
	}
	if report.Total == 0 {
		log.Info("No posts with hashtags found")
		return report, nil
	}
	log.Infof("Found %d posts with hashtags", report.Total)
	if dryRun {
		log.Warn("Dry run, no changes will be made")
	}

	var batch []models.Post
	result := query.Session(&gorm.Session{}).Select("id", "caption").FindInBatches(&batch, syncBatchSize, func(_ *gorm.DB, _ int) error {
		for _, post := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !dryRun {
				if err := s.syncPost(ctx, post); err != nil {
					return err
				}
			}
			report.Synced++
			if report.Synced%syncProgressEvery == 0 {
				log.Infof("Processed %d/%d posts", report.Synced, report.Total)
			}
		}
		return nil
	})
	if result.Error != nil {
		return report, fmt.Errorf("syncing tags: %w", result.Error)
	}

	if dryRun {
		log.Infof("Would sync tags for %d posts", report.Synced)
	} else {
		log.Infof("Synced tags for %d posts", report.Synced)
	}
	return report, nil
}

func (s *TagSyncer) syncPost(ctx context.Context, post models.Post) error {
	var resolved []models.Tag
	err := s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		resolved, err = s.tags.SyncPostTags(ctx, tx, post.ID, post.Caption)
		return err
	})
	if err != nil {
		return fmt.Errorf("post %d: %w", post.ID, err)
	}
	s.tags.Remember(ctx, resolved)
	return nil
}
