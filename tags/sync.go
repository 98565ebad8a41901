package tags

import (
	"context"
	"fmt"
	"gorm.io/gorm"
	"gramm/storage"
	"gramm/storage/cache"
	"gramm/storage/models"
	"gramm/storage/queries"
	"sort"
	"time"
	"unicode/utf8"
)

type Synchronizer struct {
	tagsCache *cache.TagsCache
	now       func() time.Time
}

func NewSynchronizer(manager *storage.Manager) *Synchronizer {
	return &Synchronizer{
		tagsCache: manager.TagsCache(),
		now:       manager.Now,
	}
}

// ResolveTags gets or creates one tag per distinct slug among names. Names
// longer than MaxTagNameLength, or whose slug is empty or does not fit the
// slug column, are dropped. The
// first writer of a slug keeps its display name.
func (s *Synchronizer) ResolveTags(ctx context.Context, tx *gorm.DB, names []string) ([]models.Tag, error) {
	nameBySlug := make(map[string]string, len(names))
	for _, name := range names {
		if utf8.RuneCountInString(name) > models.MaxTagNameLength {
			continue
		}
		slug := Slugify(name)
		if slug == "" || len(slug) > models.MaxTagSlugLength {
			continue
		}
		if _, ok := nameBySlug[slug]; !ok {
			nameBySlug[slug] = name
		}
	}
	slugs := make([]string, 0, len(nameBySlug))
	for slug := range nameBySlug {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	found, missing := s.tagsCache.GetTags(ctx, slugs)
	for _, slug := range missing {
		tag := models.Tag{Name: nameBySlug[slug], Slug: slug, CreatedAt: s.now()}
		if err := queries.InsertTagIgnore(tx, &tag); err != nil {
			return nil, fmt.Errorf("creating tag %q: %w", slug, err)
		}
	}
	if len(missing) > 0 {
		stored, err := queries.TagsBySlugs(tx, missing)
		if err != nil {
			return nil, fmt.Errorf("reading tags: %w", err)
		}
		for _, tag := range stored {
			found[tag.Slug] = tag
		}
	}

	result := make([]models.Tag, 0, len(slugs))
	for _, slug := range slugs {
		tag, ok := found[slug]
		if !ok {
			// Name collided with an existing tag under a different slug.
			continue
		}
		result = append(result, tag)
	}
	return result, nil
}

// SyncPostTags makes the post's tag set exactly the hashtags of caption.
func (s *Synchronizer) SyncPostTags(ctx context.Context, tx *gorm.DB, postID uint, caption string) ([]models.Tag, error) {
	resolved, err := s.ResolveTags(ctx, tx, ExtractHashtags(caption))
	if err != nil {
		return nil, err
	}
	tagIDs := make([]uint, 0, len(resolved))
	for _, tag := range resolved {
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := queries.ReplacePostTags(tx, postID, tagIDs); err != nil {
		return nil, fmt.Errorf("replacing tags of post %d: %w", postID, err)
	}
	return resolved, nil
}

// Remember caches tags once the transaction that resolved them has committed.
func (s *Synchronizer) Remember(ctx context.Context, resolved []models.Tag) {
	for _, tag := range resolved {
		s.tagsCache.AddTag(ctx, tag)
	}
}
