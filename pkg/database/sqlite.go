package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Alwanly/social-hub/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens the local database. An empty path opens a private
// in-memory database.
func NewSQLiteDB(path string, debug bool) (*gorm.DB, error) {
	dsn := path
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:"
	} else if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// concurrent writers wait for the lock
	dsn += "?_busy_timeout=5000"

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer; a single connection also keeps :memory: shared
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func RunMigrations(db *gorm.DB) error {
	models := []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Listing{},
		&models.Deal{},
		&models.Topic{},
		&models.Space{},
		&models.SpaceMember{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.Follower{},
		&models.Notification{},
		&models.AuthUser{},
		&models.RefreshToken{},
		&models.SessionRecord{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SeedInitialData inserts the default topics when the table is empty.
func SeedInitialData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Topic{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing topics: %w", err)
	}

	if count == 0 {
		topics := []models.Topic{
			{Name: "general", Description: "Anything goes"},
			{Name: "marketplace", Description: "Buying and selling"},
			{Name: "events", Description: "What is happening nearby"},
		}
		if err := db.Create(&topics).Error; err != nil {
			return fmt.Errorf("failed to seed initial topics: %w", err)
		}
	}

	return nil
}
