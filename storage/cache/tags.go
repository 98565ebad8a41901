package cache

import (
	"context"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gramm/storage/models"
	"time"
)

const TagsBySlugRedisKey = "tags_by_slug"

type cachedTag struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TagsCache maps slugs to tag rows. Tags are never renamed or deleted, so
// entries only go stale by expiring.
type TagsCache struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewTagsCache(redisConnection *redis.Client, expiration time.Duration) *TagsCache {
	return &TagsCache{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

func (c *TagsCache) AddTag(ctx context.Context, tag models.Tag) {
	if c == nil {
		return
	}
	bytes, err := json.Marshal(cachedTag{ID: tag.ID, Name: tag.Name, Slug: tag.Slug})
	if err != nil {
		log.Errorf("Error marshalling tag: %s", err)
		return
	}
	c.hSetWithExpiration(ctx, TagsBySlugRedisKey, tag.Slug, string(bytes))
}

func (c *TagsCache) GetTag(ctx context.Context, slug string) (models.Tag, bool) {
	if c == nil {
		return models.Tag{}, false
	}
	val, err := c.redisClient.HGet(ctx, TagsBySlugRedisKey, slug).Result()
	if err != nil {
		return models.Tag{}, false
	}
	var tag cachedTag
	if err := json.Unmarshal([]byte(val), &tag); err != nil {
		log.Errorf("Error unmarshalling tag: %s", err)
		return models.Tag{}, false
	}
	return models.Tag{ID: tag.ID, Name: tag.Name, Slug: tag.Slug}, true
}

// GetTags returns the cached subset of slugs and the ones that missed.
func (c *TagsCache) GetTags(ctx context.Context, slugs []string) (map[string]models.Tag, []string) {
	found := make(map[string]models.Tag, len(slugs))
	if c == nil || len(slugs) == 0 {
		return found, slugs
	}
	values, err := c.redisClient.HMGet(ctx, TagsBySlugRedisKey, slugs...).Result()
	if err != nil {
		log.Warningf("Error reading tags cache: %v", err)
		return found, slugs
	}
	var missing []string
	for i, value := range values {
		str, ok := value.(string)
		if !ok {
			missing = append(missing, slugs[i])
			continue
		}
		var tag cachedTag
		if err := json.Unmarshal([]byte(str), &tag); err != nil {
			missing = append(missing, slugs[i])
			continue
		}
		found[slugs[i]] = models.Tag{ID: tag.ID, Name: tag.Name, Slug: tag.Slug}
	}
	return found, missing
}

func (c *TagsCache) hSetWithExpiration(ctx context.Context, redisKey, key, value string) {
	c.redisClient.HSet(ctx, redisKey, key, value)
	c.redisClient.HExpire(ctx, redisKey, c.expiration, key)
}
