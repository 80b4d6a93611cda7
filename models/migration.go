package models

import (
	"log"

	"github.com/retailtools/huecos_backend/config"
)

// MigrateTable runs gorm automigration for every persisted model.
func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		log.Println("skipping migration: database not connected")
		return
	}

	err := db.AutoMigrate(
		&CustomProduct{},
		&ScanHistory{},
		&StockReportArchive{},
	)
	if err != nil {
		log.Printf("migration error: %v", err)
	}
}
