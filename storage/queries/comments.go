package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
	"time"
)

func CreateComment(tx *gorm.DB, comment *models.Comment) error {
	return tx.Omit(clause.Associations).Create(comment).Error
}

func GetComment(db *gorm.DB, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func UpdateCommentText(tx *gorm.DB, id uint, text string, updatedAt time.Time) error {
	return tx.Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"text":       text,
		"updated_at": updatedAt,
	}).Error
}

func DeleteComment(tx *gorm.DB, id uint) error {
	return tx.Delete(&models.Comment{}, id).Error
}

func CountComments(db *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func CommentCounts(db *gorm.DB, postIDs []uint) (map[uint]int64, error) {
	return countByPost(db, &models.Comment{}, postIDs)
}

// ListComments returns the post's comments oldest first with their authors.
func ListComments(db *gorm.DB, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := db.Preload(
		"Author",
	).Preload(
		"Author.Profile",
	).Where(
		"post_id = ?", postID,
	).Order(
		"created_at",
	).Order(
		"id",
	).Find(&comments).Error
	return comments, err
}
