package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
	"time"
)

func DeleteLike(tx *gorm.DB, userID, postID uint) (bool, error) {
	result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	return result.RowsAffected > 0, result.Error
}

// InsertLike reports whether a new row was written.
func InsertLike(tx *gorm.DB, userID, postID uint, createdAt time.Time) (bool, error) {
	like := models.Like{UserID: userID, PostID: postID, CreatedAt: createdAt}
	result := tx.Omit(clause.Associations).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		},
	).Create(&like)
	return result.RowsAffected > 0, result.Error
}

func CountLikes(db *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func LikeExists(db *gorm.DB, userID, postID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

func LikeCounts(db *gorm.DB, postIDs []uint) (map[uint]int64, error) {
	return countByPost(db, &models.Like{}, postIDs)
}

// LikedAmong returns the subset of posts the user likes.
func LikedAmong(db *gorm.DB, userID uint, postIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var ids []uint
	err := db.Model(&models.Like{}).Where(
		"user_id = ? AND post_id IN ?", userID, postIDs,
	).Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func countByPost(db *gorm.DB, model interface{}, postIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	type row struct {
		PostID uint
		Count  int64
	}
	var rows []row
	err := db.Model(model).Select(
		"post_id, COUNT(*) AS count",
	).Where(
		"post_id IN ?", postIDs,
	).Group("post_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.PostID] = r.Count
	}
	return result, nil
}
