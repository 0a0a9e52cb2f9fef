package api

import (
	"io"
	"net/http"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/ingest"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookHandler is the single inbound entrypoint for both provider
// protocols.
type WebhookHandler struct {
	Config   *config.Config
	DB       *gorm.DB
	Pipeline *ingest.Pipeline
}

func NewWebhookHandler(cfg *config.Config, db *gorm.DB, pipeline *ingest.Pipeline) *WebhookHandler {
	return &WebhookHandler{Config: cfg, DB: db, Pipeline: pipeline}
}

// VerifyWebhook answers the Meta subscription handshake.
func (h *WebhookHandler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			logrus.Info("webhook verified successfully")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// HandleWebhook detects the provider protocol, normalizes the body and runs
// every contained event through the ingestion pipeline. Filtered and
// duplicate events still answer 200: a non-2xx response would only make the
// provider redeliver them.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	kind := provider.Detect(body)
	adapter := provider.AdapterFor(kind)
	if adapter == nil {
		logrus.Warn("webhook body matches no known provider protocol")
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "unknown_protocol"})
		return
	}

	events, err := adapter.Parse(body)
	if err != nil {
		logrus.WithError(err).Error("webhook parse failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]ingest.Result, 0, len(events))
	for i := range events {
		ev := &events[i]

		inst, err := h.findInstance(kind, ev.Session)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"provider": kind,
				"session":  ev.Session,
			}).Warn("webhook for unknown instance")
			results = append(results, ingest.Result{Status: ingest.StatusIgnored, Reason: "unknown_instance"})
			continue
		}

		res, err := h.Pipeline.Process(c.Request.Context(), ev, inst)
		if err != nil {
			logrus.WithError(err).Error("event processing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}
		results = append(results, *res)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// findInstance matches the event to its configured provider connection by
// session identifier, falling back to the sole active connection of that
// provider when the session is not registered explicitly.
func (h *WebhookHandler) findInstance(kind provider.Kind, session string) (*models.WhatsAppConfig, error) {
	var inst models.WhatsAppConfig
	err := h.DB.Where("provider = ? AND session = ? AND is_active = ?", string(kind), session, true).
		First(&inst).Error
	if err == nil {
		return &inst, nil
	}

	var candidates []models.WhatsAppConfig
	if err := h.DB.Where("provider = ? AND is_active = ?", string(kind), true).
		Limit(2).Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}
	return nil, gorm.ErrRecordNotFound
}
