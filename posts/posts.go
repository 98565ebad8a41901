// Package posts creates and edits posts together with their images and tags.
package posts

import (
	"context"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gramm/feeds"
	"gramm/media"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/tags"
	"gramm/validation"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	MediaTimeout     time.Duration
	MediaConcurrency int
}

type Service struct {
	manager      *storage.Manager
	store        media.Store
	preprocessor *media.Preprocessor
	tags         *tags.Synchronizer
	config       Config
}

func NewService(manager *storage.Manager, store media.Store, preprocessor *media.Preprocessor, config Config) *Service {
	if config.MediaTimeout <= 0 {
		config.MediaTimeout = 10 * time.Second
	}
	if config.MediaConcurrency < 1 {
		config.MediaConcurrency = 4
	}
	return &Service{
		manager:      manager,
		store:        store,
		preprocessor: preprocessor,
		tags:         tags.NewSynchronizer(manager),
		config:       config,
	}
}

// Detail is a single post as shown on its own page.
type Detail struct {
	feeds.Item
	Comments []models.Comment `json:"comments"`
}

func validateCaption(caption string) (string, error) {
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
		return "", validation.Errorf("caption must be at most %d characters", models.MaxCaptionLength)
	}
	return caption, nil
}

// Create stores a post with its images and hashtags. Images are normalized
// and uploaded before the database transaction; if the transaction fails the
// uploaded blobs are removed again.
func (s *Service) Create(ctx context.Context, authorID uint, caption string, uploads []media.Upload) (*models.Post, error) {
	caption, err := validateCaption(caption)
	if err != nil {
		return nil, err
	}
	if len(uploads) > models.MaxPostImages {
		return nil, validation.Errorf("a post can have at most %d images", models.MaxPostImages)
	}
	if _, err := s.manager.GetUser(ctx, authorID); err != nil {
		return nil, err
	}

	processed := make([][]byte, len(uploads))
	for i, upload := range uploads {
		if processed[i], err = s.preprocessor.Process(upload.Data, upload.ContentType); err != nil {
			return nil, err
		}
	}

	imageIDs := make([]string, 0, len(processed))
	for _, data := range processed {
		id, err := s.uploadOne(ctx, data)
		if err != nil {
			s.discard(ctx, imageIDs)
			return nil, fmt.Errorf("uploading image: %w", err)
		}
		imageIDs = append(imageIDs, id)
	}

	now := s.manager.Now()
	post := models.Post{AuthorID: authorID, Caption: caption, CreatedAt: now, UpdatedAt: now}
	var resolved []models.Tag
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		if err := queries.CreatePost(tx, &post); err != nil {
			return err
		}
		images := make([]models.PostImage, 0, len(imageIDs))
		for i, id := range imageIDs {
			images = append(images, models.PostImage{PostID: post.ID, ImageID: id, Order: i})
		}
		if err := queries.CreateImages(tx, images); err != nil {
			return err
		}
		post.Images = images
		resolved, err = s.tags.SyncPostTags(ctx, tx, post.ID, caption)
		return err
	})
	if err != nil {
		s.discard(ctx, imageIDs)
		return nil, fmt.Errorf("creating post: %w", err)
	}
	s.tags.Remember(ctx, resolved)
	post.Tags = resolved
	return &post, nil
}

// UpdateCaption replaces the caption of the actor's post and re-syncs its tags.
func (s *Service) UpdateCaption(ctx context.Context, actorID, postID uint, caption string) (*models.Post, error) {
	caption, err := validateCaption(caption)
	if err != nil {
		return nil, err
	}
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	now := s.manager.Now()
	var resolved []models.Tag
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		if err := queries.UpdateCaption(tx, post.ID, caption, now); err != nil {
			return err
		}
		resolved, err = s.tags.SyncPostTags(ctx, tx, post.ID, caption)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating post %d: %w", postID, err)
	}
	s.tags.Remember(ctx, resolved)
	post.Caption = caption
	post.UpdatedAt = now
	post.Tags = resolved
	return post, nil
}

// ReorderImages assigns order = position to each image of the post. imageIDs
// must list every image of the post exactly once.
func (s *Service) ReorderImages(ctx context.Context, actorID, postID uint, imageIDs []uint) ([]models.PostImage, error) {
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.PostImage, len(post.Images))
	for _, image := range post.Images {
		byID[image.ID] = image
	}
	if len(imageIDs) != len(byID) {
		return nil, validation.Errorf("the new order must list all %d images of the post", len(byID))
	}
	seen := make(map[uint]bool, len(imageIDs))
	for _, id := range imageIDs {
		if _, ok := byID[id]; !ok || seen[id] {
			return nil, validation.Errorf("image %d is not part of the post or is repeated", id)
		}
		seen[id] = true
	}

	ordered := make([]models.PostImage, 0, len(imageIDs))
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		for i, id := range imageIDs {
			if err := queries.SetImageOrder(tx, id, i); err != nil {
				return err
			}
			image := byID[id]
			image.Order = i
			ordered = append(ordered, image)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reordering images of post %d: %w", postID, err)
	}
	return ordered, nil
}

// Delete removes the actor's post. Stored images are removed afterwards on a
// best-effort basis.
func (s *Service) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return err
	}
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		_, err := queries.DeletePost(tx, post.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", postID, err)
	}
	s.discard(ctx, media.ExternalIDs(post.Images...))
	return nil
}

// Get returns the post with its counters, viewer annotations and comments.
func (s *Service) Get(ctx context.Context, viewerID, postID uint) (Detail, error) {
	post, err := s.manager.GetPost(ctx, postID)
	if err != nil {
		return Detail{}, err
	}
	db := s.manager.DB(ctx)
	items, err := feeds.LoadItems(db, []models.Post{*post})
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Item: items[0]}
	if viewerID != 0 {
		if detail.Liked, err = queries.LikeExists(db, viewerID, postID); err != nil {
			return Detail{}, err
		}
		if viewerID != post.AuthorID {
			if detail.AuthorFollowed, err = queries.FollowExists(db, viewerID, post.AuthorID); err != nil {
				return Detail{}, err
			}
		}
	}
	if detail.Comments, err = queries.ListComments(db, postID); err != nil {
		return Detail{}, err
	}
	return detail, nil
}

// ImageURL resolves a stored image id to its public URL.
func (s *Service) ImageURL(externalID string) string {
	return s.store.URL(externalID)
}

func (s *Service) ownedPost(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	post, err := s.manager.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, storage.ErrForbidden
	}
	return post, nil
}

func (s *Service) uploadOne(ctx context.Context, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.MediaTimeout)
	defer cancel()
	return s.store.Upload(callCtx, data, media.OutputMediaType)
}

func (s *Service) discard(ctx context.Context, ids []string) {
	// Cleanup runs even when the request was cancelled.
	cleanupCtx := context.WithoutCancel(ctx)
	failed := media.DeleteAll(cleanupCtx, s.store, ids, s.config.MediaTimeout, s.config.MediaConcurrency)
	if len(failed) > 0 {
		log.WithField("media_ids", failed).Warn("Could not delete stored images")
	}
}
