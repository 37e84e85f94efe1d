package database

import (
	"fmt"
	"log/slog"

	"stream-service/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresConnection(dburi string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dburi), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)

	slog.Info("PostgreSQL connection established successfully")
	return db, nil
}

// Migrate creates the membership tables and their lookup index
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Project{}, &models.ProjectMember{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_project_members_user_id ON project_members (user_id)").Error; err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}
