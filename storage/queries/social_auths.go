package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
)

func GetSocialAuth(db *gorm.DB, provider, uid string) (*models.SocialAuth, error) {
	var link models.SocialAuth
	err := db.Where("provider = ? AND uid = ?", provider, uid).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func CreateSocialAuth(tx *gorm.DB, link *models.SocialAuth) error {
	return tx.Omit(clause.Associations).Create(link).Error
}

func DeleteSocialAuths(tx *gorm.DB, userID uint) (int64, error) {
	result := tx.Where("user_id = ?", userID).Delete(&models.SocialAuth{})
	return result.RowsAffected, result.Error
}

func HasSocialAuthTable(db *gorm.DB) bool {
	return db.Migrator().HasTable(&models.SocialAuth{})
}
