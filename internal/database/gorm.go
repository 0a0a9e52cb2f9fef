package database

import (
	"log"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

func InitGorm(cfg *config.Config) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		dialector = postgres.Open(cfg.DBDSN)
	}

	var err error
	GormDB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(GormDB); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database initialized and migrated")
}

// Migrate runs the schema migration on the given connection. Split out from
// InitGorm so tests can migrate an in-memory sqlite database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Lead{},
		&models.Conversation{},
		&models.Message{},
		&models.WhatsAppConfig{},
		&models.WebhookQueueItem{},
		&models.Webhook{},
		&models.WebhookLog{},
	)
}
