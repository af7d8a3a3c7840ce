package database

import (
	"chatwire/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func Initialize(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
		&models.CallRecord{},
		&models.PushSubscription{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
