package models

import "time"

const (
	MaxCaptionLength = 2200
	MaxCommentLength = 500
	MaxTagNameLength = 50
	MaxTagSlugLength = 64 // size of tags.slug
	MaxPostImages    = 10
)

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"constraint:OnDelete:CASCADE" json:"author"`
	Caption   string    `gorm:"size:2200" json:"caption"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Images []PostImage `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Tags   []Tag       `gorm:"-" json:"tags"`
}

type PostImage struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	PostID  uint   `gorm:"not null;index" json:"-"`
	Post    *Post  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ImageID string `gorm:"size:255;not null" json:"image_id"`
	Order   int    `gorm:"column:sort_order;not null;default:0" json:"order"`

	// URL is resolved against the media store when rendering.
	URL string `gorm:"-" json:"url,omitempty"`
}

func (i PostImage) ExternalID() (string, bool) {
	return i.ImageID, i.ImageID != ""
}

// Tag is shared vocabulary; rows outlive the posts that reference them.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Slug      string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"-"`
}

type PostTag struct {
	PostID uint  `gorm:"primaryKey"`
	TagID  uint  `gorm:"primaryKey;index"`
	Post   *Post `gorm:"constraint:OnDelete:CASCADE"`
	Tag    *Tag  `gorm:"constraint:OnDelete:CASCADE"`
}

type Like struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_likes_user_post"`
	PostID    uint  `gorm:"not null;uniqueIndex:idx_likes_user_post;index"`
	User      *User `gorm:"constraint:OnDelete:CASCADE"`
	Post      *Post `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Author    *User     `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Post      *Post     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Text      string    `gorm:"size:500;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
