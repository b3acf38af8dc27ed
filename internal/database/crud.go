package database

import (
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"gorm.io/gorm"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByGitLabID(db *gorm.DB, gitlabID string) (*models.User, error) {
	var user models.User
	if err := db.Where("git_lab_id = ?", gitlabID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another user, soft-deleted ones included, holds username.
func UsernameTaken(db *gorm.DB, username, exceptID string) (bool, error) {
	var count int64
	err := db.Unscoped().Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	return count > 0, err
}

func CountUsers(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// Flash messages

func AddFlash(db *gorm.DB, sessionID, category, key string) error {
	return db.Create(&models.FlashMessage{
		SessionID: sessionID,
		Category:  category,
		Key:       key,
	}).Error
}

// PopFlashes returns the pending messages of a session in insertion order and deletes them.
func PopFlashes(db *gorm.DB, sessionID string) ([]models.FlashMessage, error) {
	var flashes []models.FlashMessage
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Order("id asc").Find(&flashes).Error; err != nil {
			return err
		}
		if len(flashes) == 0 {
			return nil
		}
		ids := make([]uint, len(flashes))
		for i, f := range flashes {
			ids[i] = f.ID
		}
		return tx.Where("id IN ?", ids).Delete(&models.FlashMessage{}).Error
	})
	return flashes, err
}
