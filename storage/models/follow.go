package models

import "time"

// Follow is a directed edge: Follower follows Following.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`

	Follower  User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Following User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
