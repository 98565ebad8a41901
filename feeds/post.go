package feeds

import (
	"gramm/storage/models"
	"time"
)

// Item is a post with everything needed to render it in a feed.
type Item struct {
	ID            uint               `json:"id"`
	Caption       string             `json:"caption"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Author        models.User        `json:"author"`
	Images        []models.PostImage `json:"images"`
	Tags          []models.Tag       `json:"tags"`
	LikesCount    int64              `json:"likes_count"`
	CommentsCount int64              `json:"comments_count"`

	// Viewer annotations, false for anonymous viewers.
	Liked          bool `json:"liked"`
	AuthorFollowed bool `json:"author_followed"`
}

type Response struct {
	Items   []Item `json:"items"`
	Total   int64  `json:"total"`
	HasNext bool   `json:"has_next"`

	LikedPostIDs      map[uint]bool `json:"-"`
	FollowedAuthorIDs map[uint]bool `json:"-"`

	// FollowingCount is only filled for the news feed.
	FollowingCount int64 `json:"following_count,omitempty"`
}

type TagPage struct {
	Tag   models.Tag `json:"tag"`
	Posts Response   `json:"posts"`
}

type ProfilePage struct {
	User           models.User `json:"user"`
	PostsCount     int64       `json:"posts_count"`
	FollowersCount int64       `json:"followers_count"`
	FollowingCount int64       `json:"following_count"`
	IsFollowing    bool        `json:"is_following"`
	IsOwner        bool        `json:"is_owner"`
	Posts          Response    `json:"posts"`
}
