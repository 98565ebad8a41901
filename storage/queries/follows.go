package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
	"time"
)

// InsertFollow reports whether a new edge was written; an existing edge is left untouched.
func InsertFollow(tx *gorm.DB, followerID, followingID uint, createdAt time.Time) (bool, error) {
	follow := models.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: createdAt}
	result := tx.Omit(clause.Associations).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		},
	).Create(&follow)
	return result.RowsAffected > 0, result.Error
}

func DeleteFollow(tx *gorm.DB, followerID, followingID uint) (bool, error) {
	result := tx.Where(
		"follower_id = ? AND following_id = ?", followerID, followingID,
	).Delete(&models.Follow{})
	return result.RowsAffected > 0, result.Error
}

// DeleteFollowsOf removes every edge touching the user, in either direction.
func DeleteFollowsOf(tx *gorm.DB, userID uint) (int64, error) {
	result := tx.Where(
		"follower_id = ? OR following_id = ?", userID, userID,
	).Delete(&models.Follow{})
	return result.RowsAffected, result.Error
}

func FollowExists(db *gorm.DB, followerID, followingID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Follow{}).Where(
		"follower_id = ? AND following_id = ?", followerID, followingID,
	).Count(&count).Error
	return count > 0, err
}

func CountFollowers(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

func CountFollowing(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

// FollowedAmong returns the subset of candidates the follower follows.
func FollowedAmong(db *gorm.DB, followerID uint, candidates []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if len(candidates) == 0 {
		return result, nil
	}
	var ids []uint
	err := db.Model(&models.Follow{}).Where(
		"follower_id = ? AND following_id IN ?", followerID, candidates,
	).Pluck("following_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// FollowingIDs returns a subquery selecting the ids the follower follows.
func FollowingIDs(db *gorm.DB, followerID uint) *gorm.DB {
	return db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", followerID)
}

// ListFollowers returns edges pointing at userID, newest first, with the follower loaded.
func ListFollowers(db *gorm.DB, userID uint, offset, limit int) ([]models.Follow, error) {
	var follows []models.Follow
	err := db.Preload(
		"Follower",
	).Preload(
		"Follower.Profile",
	).Where(
		"following_id = ?", userID,
	).Order(
		"created_at desc",
	).Order(
		"id desc",
	).Offset(offset).Limit(limit).Find(&follows).Error
	return follows, err
}

// ListFollowing returns edges leaving userID, newest first, with the followed user loaded.
func ListFollowing(db *gorm.DB, userID uint, offset, limit int) ([]models.Follow, error) {
	var follows []models.Follow
	err := db.Preload(
		"Following",
	).Preload(
		"Following.Profile",
	).Where(
		"follower_id = ?", userID,
	).Order(
		"created_at desc",
	).Order(
		"id desc",
	).Offset(offset).Limit(limit).Find(&follows).Error
	return follows, err
}
