package database

import (
	"fmt"

	"forecast_srv/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds the database configuration.
type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// NewDatabase creates a new database connection for the configured driver.
func NewDatabase(cfg Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Debug {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

// AutoMigrate runs database migrations for all service-owned tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ReportTemplate{},
		&models.ReportHistory{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Forecast{},
	)
}

// SeedDefaultTemplates creates the two default templates if they are missing.
func SeedDefaultTemplates(db *gorm.DB, log *logrus.Logger) error {
	defaults := []models.ReportTemplate{
		{
			Name:         "default_pdf",
			Description:  "Default PDF report template",
			Type:         models.ReportTypePDF,
			TemplatePath: "templates/pdf/default.html",
			IsActive:     true,
		},
		{
			Name:         "default_xlsx",
			Description:  "Default Excel report template",
			Type:         models.ReportTypeXLSX,
			TemplatePath: "templates/xlsx/default.json",
			IsActive:     true,
		},
	}

	for _, tmpl := range defaults {
		var count int64
		if err := db.Model(&models.ReportTemplate{}).Where("name = ?", tmpl.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check template %s: %w", tmpl.Name, err)
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&tmpl).Error; err != nil {
			return fmt.Errorf("failed to seed template %s: %w", tmpl.Name, err)
		}
		log.WithField("template", tmpl.Name).Info("Seeded default report template")
	}

	return nil
}
