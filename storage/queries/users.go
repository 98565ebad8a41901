package queries

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gramm/storage/models"
)

func CreateUser(tx *gorm.DB, user *models.User) error {
	return tx.Omit(clause.Associations).Create(user).Error
}

func GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.Preload("Profile").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := db.Preload("Profile").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail matches the address exactly.
func GetUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmailFold matches the address ignoring case, lowest id first.
func GetUserByEmailFold(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Where("LOWER(email) = LOWER(?)", email).Order("id").First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func UsernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func UsersByIDs(db *gorm.DB, ids []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := db.Preload("Profile").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		result[user.ID] = user
	}
	return result, nil
}

func DeleteUser(tx *gorm.DB, id uint) (int64, error) {
	result := tx.Delete(&models.User{}, id)
	return result.RowsAffected, result.Error
}
