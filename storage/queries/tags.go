package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
)

// InsertTagIgnore creates the tag unless a row with the same slug or name exists.
func InsertTagIgnore(tx *gorm.DB, tag *models.Tag) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(tag).Error
}

func TagsBySlugs(db *gorm.DB, slugs []string) ([]models.Tag, error) {
	var tags []models.Tag
	if len(slugs) == 0 {
		return tags, nil
	}
	err := db.Where("slug IN ?", slugs).Find(&tags).Error
	return tags, err
}

func GetTagBySlug(db *gorm.DB, slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// ReplacePostTags makes tagIDs the exact tag set of the post.
func ReplacePostTags(tx *gorm.DB, postID uint, tagIDs []uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.PostTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, models.PostTag{PostID: postID, TagID: tagID})
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// TagsByPosts groups tags by post, each group ordered by name.
func TagsByPosts(db *gorm.DB, postIDs []uint) (map[uint][]models.Tag, error) {
	result := make(map[uint][]models.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	type row struct {
		PostID uint
		models.Tag
	}
	var rows []row
	err := db.Table(
		"post_tags",
	).Select(
		"post_tags.post_id, tags.id, tags.name, tags.slug, tags.created_at",
	).Joins(
		"JOIN tags ON tags.id = post_tags.tag_id",
	).Where(
		"post_tags.post_id IN ?", postIDs,
	).Order("tags.name").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.PostID] = append(result[r.PostID], r.Tag)
	}
	return result, nil
}

// PostIDsWithTag returns a subquery selecting the ids of posts carrying the tag.
func PostIDsWithTag(db *gorm.DB, tagID uint) *gorm.DB {
	return db.Model(&models.PostTag{}).Select("post_id").Where("tag_id = ?", tagID)
}
