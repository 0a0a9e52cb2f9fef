package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	VerifyToken string

	DBDriver string // postgres or sqlite
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StoragePath    string
	StorageBaseURL string

	ProviderTimeout time.Duration
	MediaCooldown   time.Duration

	DispatchBatchSize   int
	DispatchMaxAttempts int
	DispatchBaseDelay   time.Duration
	DispatchWorkers     int
	DispatchInterval    time.Duration

	Environment    string
	WebhookVersion string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),

		DBDriver: getEnv("DB_DRIVER", "postgres"),
		DBDSN:    getEnv("DB_DSN", "host=localhost user=postgres password=postgres dbname=whatsapp_crm port=5432 sslmode=disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StoragePath:    getEnv("STORAGE_PATH", "./storage/media"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "/media"),

		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT_SECONDS", 20),
		MediaCooldown:   getEnvDuration("MEDIA_REPAIR_COOLDOWN_SECONDS", 300),

		DispatchBatchSize:   getEnvInt("DISPATCH_BATCH_SIZE", 50),
		DispatchMaxAttempts: getEnvInt("DISPATCH_MAX_ATTEMPTS", 5),
		DispatchBaseDelay:   getEnvDuration("DISPATCH_BASE_DELAY_SECONDS", 1),
		DispatchWorkers:     getEnvInt("DISPATCH_WORKERS", 4),
		DispatchInterval:    getEnvDuration("DISPATCH_INTERVAL_SECONDS", 10),

		Environment:    getEnv("ENVIRONMENT", "production"),
		WebhookVersion: getEnv("WEBHOOK_VERSION", "1.0"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid int for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackSeconds)) * time.Second
}
