package database

import (
	"fmt"
	"log"
	"os"
	"siamplay/config"
	"siamplay/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectMaster opens the master database, which holds only tenant routing
// rows. Per-tenant databases are opened on demand by the Registry.
func ConnectMaster() (*gorm.DB, error) {
	dsn := os.Getenv("MASTER_DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			config.Getenv("DB_HOST", "127.0.0.1"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			config.Getenv("DB_NAME", "siamplay_master"),
			config.Getenv("DB_PORT", "5432"),
			config.Getenv("DB_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect master database: %w", err)
	}

	if config.GetenvBool("DB_AUTO_MIGRATE", false) {
		if err := db.AutoMigrate(&models.Tenant{}); err != nil {
			return nil, fmt.Errorf("migrate master database: %w", err)
		}
		log.Println("✅ Master auto migration completed")
	}

	return db, nil
}

// MigrateTenant creates the per-tenant schema. Run by operators when a tenant
// is provisioned, and by tests against throwaway databases.
func MigrateTenant(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AgentConfig{},
		&models.User{},
		&models.ExternalAccount{},
		&models.Transaction{},
		&models.BankAccount{},
		&models.Setting{},
		&models.NotificationLog{},
	)
}
