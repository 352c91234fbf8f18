package db

import (
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.User{},
		&domain.Idea{},
		&domain.Stage{},
		&domain.Message{},
	)
}
