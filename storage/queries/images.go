package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
)

func CreateImages(tx *gorm.DB, images []models.PostImage) error {
	if len(images) == 0 {
		return nil
	}
	return tx.Omit(clause.Associations).Create(&images).Error
}

// ImagesByPosts groups images by post, each group in display order.
func ImagesByPosts(db *gorm.DB, postIDs []uint) (map[uint][]models.PostImage, error) {
	result := make(map[uint][]models.PostImage, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	var images []models.PostImage
	err := db.Where("post_id IN ?", postIDs).Order("post_id").Order("sort_order").Order("id").Find(&images).Error
	if err != nil {
		return nil, err
	}
	for _, image := range images {
		result[image.PostID] = append(result[image.PostID], image)
	}
	return result, nil
}

func SetImageOrder(tx *gorm.DB, imageID uint, order int) error {
	return tx.Model(&models.PostImage{}).Where("id = ?", imageID).Update("sort_order", order).Error
}

// ImagesByAuthor returns every image attached to the author's posts.
func ImagesByAuthor(db *gorm.DB, authorID uint) ([]models.PostImage, error) {
	var images []models.PostImage
	err := db.Joins(
		"JOIN posts ON posts.id = post_images.post_id",
	).Where(
		"posts.author_id = ?", authorID,
	).Find(&images).Error
	return images, err
}
