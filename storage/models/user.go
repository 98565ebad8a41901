package models

import "time"

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"size:254;not null;uniqueIndex" json:"-"`
	Username        string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	IsEmailVerified bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`

	Profile *Profile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// Profile is created together with its User and never exists without one.
type Profile struct {
	ID       uint    `gorm:"primaryKey" json:"-"`
	UserID   uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	User     *User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	FullName string  `gorm:"size:100" json:"full_name"`
	Bio      string  `gorm:"size:500" json:"bio"`
	AvatarID *string `gorm:"size:255" json:"avatar_id"`

	// AvatarURL is resolved against the media store when rendering.
	AvatarURL string `gorm:"-" json:"avatar_url,omitempty"`

	// LastFeedVisit is the news feed watermark. Nil until the first visit.
	LastFeedVisit *time.Time `json:"-"`
}

// ExternalID returns the media store identifier of the avatar, if any.
func (p Profile) ExternalID() (string, bool) {
	if p.AvatarID == nil || *p.AvatarID == "" {
		return "", false
	}
	return *p.AvatarID, true
}

// SocialAuth links a User to an identity at an external OAuth provider.
type SocialAuth struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	User      *User  `gorm:"constraint:OnDelete:CASCADE"`
	Provider  string `gorm:"size:32;not null;uniqueIndex:idx_social_auths_provider_uid"`
	UID       string `gorm:"column:uid;size:255;not null;uniqueIndex:idx_social_auths_provider_uid"`
	CreatedAt time.Time
}
