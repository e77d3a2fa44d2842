package main

import (
	"gorm.io/gorm"

	"github.com/questlines/engine/internal/models"
)

func registerModels() []any {
	return []any{
		&models.QuestlineRecord{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addQuestlineListIndex,
	}
	for _, m := range migrations {
		if err := m(db); err != nil {
			return err
		}
	}
	return nil
}

// addQuestlineListIndex backs the summary listing, which orders by
// updated_at.
func addQuestlineListIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_questlines_updated_at
		ON questlines(updated_at DESC)
	`).Error
}
