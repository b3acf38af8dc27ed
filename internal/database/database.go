package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Init(dsn string) (*gorm.DB, error) {
	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		zap.S().Infof("database file not found at '%s', creating directory for it.", dsn)
		// Ensure the directory for the database file exists.
		dbDir := filepath.Dir(dsn)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
	}

	// Contest announcements rely on ON DELETE CASCADE.
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate schema
	err = db.AutoMigrate(
		&models.User{},
		&models.Contest{},
		&models.Announcement{},
		&models.FlashMessage{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Bootstrap creates an "admin" user with the admin role when no user exists yet.
func Bootstrap(db *gorm.DB, password string) error {
	count, err := CountUsers(db)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return errors.New("no users exist and auth.bootstrap_password is empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	// A soft-deleted admin still holds the username, so bring it back instead.
	var user models.User
	err = db.Unscoped().Where("username = ?", "admin").First(&user).Error
	switch {
	case err == nil:
		err = db.Unscoped().Model(&user).Updates(map[string]any{
			"deleted_at":    nil,
			"password_hash": hash,
			"roles":         models.StringList{"admin"},
			"banned_until":  nil,
		}).Error
		if err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ID:           uuid.NewString(),
			Username:     "admin",
			Nickname:     "Administrator",
			PasswordHash: hash,
			Roles:        models.StringList{"admin"},
		}
		if err := CreateUser(db, &user); err != nil {
			return err
		}
	default:
		return err
	}
	zap.S().Warnf("bootstrapped admin user %s, change its password", user.ID)
	return nil
}
