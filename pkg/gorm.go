package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/examforge/exam-service/internal/config"
	"github.com/examforge/exam-service/internal/models"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for all service models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupStudent{},
		&models.Exam{},
		&models.ReadingPassage{},
		&models.ListeningAudio{},
		&models.Question{},
		&models.SubQuestion{},
		&models.WritingTask{},
		&models.SpeakingPart{},
		&models.Attempt{},
		&models.AttemptAudio{},
		&models.Review{},
	)
}
