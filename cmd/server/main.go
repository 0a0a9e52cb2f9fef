package main

import (
	"context"
	"log"
	"time"

	"whatsapp-crm/internal/api"
	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/dispatch"
	"whatsapp-crm/internal/ingest"
	"whatsapp-crm/internal/media"
	"whatsapp-crm/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)
	db := database.GormDB

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	wahaClient := provider.NewWAHAClient(cfg.ProviderTimeout)
	metaClient := provider.NewMetaClient(cfg.ProviderTimeout)

	var cooldown media.Cooldown
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		cooldown = media.NewRedisCooldown(rdb, cfg.MediaCooldown)
	} else {
		logrus.Warn("REDIS_ADDR not set, using in-process media cooldown")
		cooldown = media.NewMemoryCooldown(cfg.MediaCooldown)
	}

	storage := media.NewDiskStorage(cfg.StoragePath, cfg.StorageBaseURL)
	fetcher := &media.ProviderFetcher{WAHA: wahaClient, Meta: metaClient}
	mediaPipeline := media.NewPipeline(storage, fetcher, cooldown, cfg.ProviderTimeout)

	pipeline := ingest.NewPipeline(db, wahaClient, mediaPipeline)
	dispatcher := dispatch.NewDispatcher(db, cfg.DispatchBatchSize, cfg.DispatchMaxAttempts,
		cfg.DispatchBaseDelay, cfg.DispatchWorkers, cfg.Environment, cfg.WebhookVersion)

	webhookHandler := api.NewWebhookHandler(cfg, db, pipeline)
	messageHandler := api.NewMessageHandler(db, mediaPipeline)
	leadHandler := api.NewLeadHandler(db)
	subscriberHandler := api.NewSubscriberHandler(db)
	dispatchHandler := api.NewDispatchHandler(dispatcher)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleWebhook)

	// Stored media is served straight off disk
	r.Static(cfg.StorageBaseURL, cfg.StoragePath)

	apiGroup := r.Group("/api")
	{
		// CRM Routes
		apiGroup.GET("/leads", leadHandler.GetLeads)
		apiGroup.GET("/leads/:id", leadHandler.GetLead)
		apiGroup.GET("/leads/:id/conversations", leadHandler.GetLeadConversations)
		apiGroup.GET("/conversations/:id/messages", messageHandler.GetConversationMessages)
		apiGroup.POST("/messages/:id/repair-media", messageHandler.RepairMedia)

		// Subscriber Routes
		apiGroup.GET("/webhooks", subscriberHandler.GetSubscribers)
		apiGroup.POST("/webhooks", subscriberHandler.CreateSubscriber)
		apiGroup.PUT("/webhooks/:id", subscriberHandler.UpdateSubscriber)
		apiGroup.DELETE("/webhooks/:id", subscriberHandler.DeleteSubscriber)
		apiGroup.GET("/webhooks/:id/logs", subscriberHandler.GetSubscriberLogs)
		apiGroup.POST("/dispatch/run", dispatchHandler.RunDispatch)
	}

	go runDispatchLoop(dispatcher, cfg.DispatchInterval)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// runDispatchLoop drains the domain event queue on a fixed interval.
func runDispatchLoop(d *dispatch.Dispatcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		processed, err := d.Run(context.Background())
		if err != nil {
			logrus.WithError(err).Error("dispatch run failed")
			continue
		}
		if processed > 0 {
			logrus.WithField("processed", processed).Info("dispatched queued events")
		}
	}
}
