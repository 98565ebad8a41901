package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
	"time"
)

func CreateProfile(tx *gorm.DB, profile *models.Profile) error {
	return tx.Omit(clause.Associations).Create(profile).Error
}

func GetProfile(db *gorm.DB, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreateProfile tolerates a concurrent creator through the unique user_id.
func GetOrCreateProfile(db *gorm.DB, userID uint) (*models.Profile, error) {
	profile := models.Profile{UserID: userID}
	err := db.Omit(clause.Associations).Clauses(
		clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true},
	).Create(&profile).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(db, userID)
}

func UpdateProfile(tx *gorm.DB, userID uint, fullName, bio string, avatarID *string) error {
	return tx.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"full_name": fullName,
		"bio":       bio,
		"avatar_id": avatarID,
	}).Error
}

func SetLastFeedVisit(db *gorm.DB, userID uint, visit time.Time) error {
	return db.Model(&models.Profile{}).Where("user_id = ?", userID).Update("last_feed_visit", visit).Error
}
