package feeds

import (
	"gorm.io/gorm"
	"gramm/storage/models"
	"gramm/storage/queries"
)

// Algorithm narrows the posts table to the rows of one feed.
type Algorithm func(db *gorm.DB) *gorm.DB

func GlobalAlgorithm() Algorithm {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Post{})
	}
}

// NewsAlgorithm selects posts by the users viewerID follows and by viewerID itself.
func NewsAlgorithm(viewerID uint) Algorithm {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Post{}).Where(
			"posts.author_id IN (?) OR posts.author_id = ?", queries.FollowingIDs(db, viewerID), viewerID,
		)
	}
}

func TagAlgorithm(tagID uint) Algorithm {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Post{}).Where("posts.id IN (?)", queries.PostIDsWithTag(db, tagID))
	}
}

func AuthorAlgorithm(authorID uint) Algorithm {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Post{}).Where("posts.author_id = ?", authorID)
	}
}
