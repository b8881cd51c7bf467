package database

import (
	"log"

	"github.com/nifgashim/trek-api/internal/config"
	"github.com/nifgashim/trek-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.Trip{},
		&models.TripParticipant{},
		&models.Registration{},
		&models.Participant{},
		&models.CheckIn{},
		&models.DayEditLog{},
		&models.User{},
		&models.ScannerKey{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
