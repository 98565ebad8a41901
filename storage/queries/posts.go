package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
	"time"
)

func CreatePost(tx *gorm.DB, post *models.Post) error {
	return tx.Omit(clause.Associations).Create(post).Error
}

// GetPost loads the post with its author and images in display order.
func GetPost(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := db.Preload(
		"Author",
	).Preload(
		"Author.Profile",
	).Preload(
		"Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order").Order("id")
		},
	).First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func UpdateCaption(tx *gorm.DB, id uint, caption string, updatedAt time.Time) error {
	return tx.Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"caption":    caption,
		"updated_at": updatedAt,
	}).Error
}

func DeletePost(tx *gorm.DB, id uint) (int64, error) {
	result := tx.Delete(&models.Post{}, id)
	return result.RowsAffected, result.Error
}

func CountPostsByAuthor(db *gorm.DB, authorID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// PagePosts applies the feed ordering to query and returns one page plus the total.
func PagePosts(query *gorm.DB, offset, limit int) ([]models.Post, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	err := query.Session(&gorm.Session{}).Order(
		"posts.created_at desc",
	).Order(
		"posts.id desc",
	).Offset(offset).Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
