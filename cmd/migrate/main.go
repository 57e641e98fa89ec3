package main

import (
	"log"
	"os"

	"forecast_srv/internal/database"

	"github.com/sirupsen/logrus"
)

func main() {
	driver := os.Getenv("APP_DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	dsn := os.Getenv("APP_DATABASE_DSN")
	if dsn == "" {
		dsn = "forecast.db"
	}

	db, err := database.NewDatabase(database.Config{
		Driver: driver,
		DSN:    dsn,
		Debug:  true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.SeedDefaultTemplates(db, logrus.StandardLogger()); err != nil {
		log.Fatalf("Failed to seed default templates: %v", err)
	}

	log.Println("Migrations completed successfully")
}
