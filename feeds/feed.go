package feeds

import (
	"context"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
)

type Composer struct {
	manager  *storage.Manager
	pageSize int
}

func NewComposer(manager *storage.Manager, pageSize int) *Composer {
	if pageSize < 1 {
		pageSize = storage.DefaultPageSize
	}
	return &Composer{manager: manager, pageSize: pageSize}
}

// Global lists every post, newest first. viewerID may be 0 for anonymous viewers.
func (c *Composer) Global(ctx context.Context, viewerID uint, page storage.Page) (Response, error) {
	return c.compose(ctx, viewerID, page, GlobalAlgorithm())
}

// News lists posts by followed users and the viewer, then moves the viewer's
// watermark to now.
func (c *Composer) News(ctx context.Context, viewerID uint, page storage.Page) (Response, error) {
	if viewerID == 0 {
		return Response{
			Items:             []Item{},
			LikedPostIDs:      map[uint]bool{},
			FollowedAuthorIDs: map[uint]bool{},
		}, nil
	}
	response, err := c.compose(ctx, viewerID, page, NewsAlgorithm(viewerID))
	if err != nil {
		return Response{}, err
	}
	db := c.manager.DB(ctx)
	if response.FollowingCount, err = queries.CountFollowing(db, viewerID); err != nil {
		return Response{}, err
	}
	if _, err := queries.GetOrCreateProfile(db, viewerID); err != nil {
		return Response{}, err
	}
	if err := queries.SetLastFeedVisit(db, viewerID, c.manager.Now()); err != nil {
		log.Errorf("Error updating feed watermark of user %d: %v", viewerID, err)
	}
	return response, nil
}

// UnreadCount counts posts by followed users newer than the viewer's last
// news feed visit. The viewer's own posts never count.
func (c *Composer) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	db := c.manager.DB(ctx)
	following, err := queries.CountFollowing(db, userID)
	if err != nil || following == 0 {
		return 0, err
	}
	query := db.Model(&models.Post{}).Where(
		"author_id IN (?) AND author_id <> ?", queries.FollowingIDs(db, userID), userID,
	)
	profile, err := queries.GetProfile(db, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if profile != nil && profile.LastFeedVisit != nil {
		query = query.Where("created_at > ?", *profile.LastFeedVisit)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting unread posts: %w", err)
	}
	return count, nil
}

// ByTag lists the posts carrying the tag with the given slug.
func (c *Composer) ByTag(ctx context.Context, viewerID uint, slug string, page storage.Page) (TagPage, error) {
	tag, err := queries.GetTagBySlug(c.manager.DB(ctx), slug)
	if err != nil {
		return TagPage{}, storage.Translate(err)
	}
	posts, err := c.compose(ctx, viewerID, page, TagAlgorithm(tag.ID))
	if err != nil {
		return TagPage{}, err
	}
	return TagPage{Tag: *tag, Posts: posts}, nil
}

// ByAuthor builds the profile page of the named user.
func (c *Composer) ByAuthor(ctx context.Context, viewerID uint, username string, page storage.Page) (ProfilePage, error) {
	user, err := c.manager.GetUserByUsername(ctx, username)
	if err != nil {
		return ProfilePage{}, err
	}
	db := c.manager.DB(ctx)
	result := ProfilePage{User: *user, IsOwner: viewerID == user.ID}
	if result.FollowersCount, err = queries.CountFollowers(db, user.ID); err != nil {
		return ProfilePage{}, err
	}
	if result.FollowingCount, err = queries.CountFollowing(db, user.ID); err != nil {
		return ProfilePage{}, err
	}
	if viewerID != 0 && viewerID != user.ID {
		if result.IsFollowing, err = queries.FollowExists(db, viewerID, user.ID); err != nil {
			return ProfilePage{}, err
		}
	}
	if result.Posts, err = c.compose(ctx, viewerID, page, AuthorAlgorithm(user.ID)); err != nil {
		return ProfilePage{}, err
	}
	result.PostsCount = result.Posts.Total
	return result, nil
}

func (c *Composer) compose(ctx context.Context, viewerID uint, page storage.Page, algorithm Algorithm) (Response, error) {
	if page.Size < 1 {
		page.Size = c.pageSize
	}
	db := c.manager.DB(ctx)
	posts, total, err := queries.PagePosts(algorithm(db), page.Offset(), page.Limit())
	if err != nil {
		return Response{}, fmt.Errorf("listing posts: %w", err)
	}
	items, err := LoadItems(db, posts)
	if err != nil {
		return Response{}, err
	}
	response := Response{
		Items:             items,
		Total:             total,
		HasNext:           page.HasNext(total),
		LikedPostIDs:      map[uint]bool{},
		FollowedAuthorIDs: map[uint]bool{},
	}
	if viewerID != 0 && len(items) > 0 {
		if err := annotate(db, viewerID, &response); err != nil {
			return Response{}, err
		}
	}
	return response, nil
}

// annotate marks liked posts and followed authors with two bulk lookups.
func annotate(db *gorm.DB, viewerID uint, response *Response) error {
	postIDs := make([]uint, 0, len(response.Items))
	authorIDs := make([]uint, 0, len(response.Items))
	for _, item := range response.Items {
		postIDs = append(postIDs, item.ID)
		authorIDs = append(authorIDs, item.Author.ID)
	}
	liked, err := queries.LikedAmong(db, viewerID, postIDs)
	if err != nil {
		return err
	}
	followed, err := queries.FollowedAmong(db, viewerID, authorIDs)
	if err != nil {
		return err
	}
	response.LikedPostIDs = liked
	response.FollowedAuthorIDs = followed
	for i := range response.Items {
		response.Items[i].Liked = liked[response.Items[i].ID]
		response.Items[i].AuthorFollowed = followed[response.Items[i].Author.ID]
	}
	return nil
}

// LoadItems attaches authors, images, tags and counters to posts using one
// query per relation.
func LoadItems(db *gorm.DB, posts []models.Post) ([]Item, error) {
	items := make([]Item, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}
	postIDs := make([]uint, 0, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
		authorIDs = append(authorIDs, post.AuthorID)
	}

	authors, err := queries.UsersByIDs(db, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading authors: %w", err)
	}
	images, err := queries.ImagesByPosts(db, postIDs)
	if err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	tags, err := queries.TagsByPosts(db, postIDs)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	likes, err := queries.LikeCounts(db, postIDs)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}
	comments, err := queries.CommentCounts(db, postIDs)
	if err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}

	for _, post := range posts {
		item := Item{
			ID:            post.ID,
			Caption:       post.Caption,
			CreatedAt:     post.CreatedAt,
			UpdatedAt:     post.UpdatedAt,
			Author:        authors[post.AuthorID],
			Images:        images[post.ID],
			Tags:          tags[post.ID],
			LikesCount:    likes[post.ID],
			CommentsCount: comments[post.ID],
		}
		if item.Images == nil {
			item.Images = []models.PostImage{}
		}
		if item.Tags == nil {
			item.Tags = []models.Tag{}
		}
		items = append(items, item)
	}
	return items, nil
}
