package config

import (
	"fmt"
	"log"
	"os"

	"github.com/Evgenija-P/inFeely-server/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

// Migrate runs AutoMigrate for all models and installs the partial
// unique index backing the one-main-meal-per-day rule. The service
// pre-check gives the friendly error message; this index is what
// actually closes the concurrent-insert window. Postgres only — other
// dialects (the sqlite test database) rely on the pre-check alone.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Meal{},
		&models.DailySummary{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_meals_user_date_main_label
		ON meals (user_id, date, label)
		WHERE label IN ('breakfast', 'lunch', 'dinner') AND deleted_at IS NULL`).Error
}
