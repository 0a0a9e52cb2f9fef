package api

import (
	"encoding/json"
	"net/http"

	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriberHandler manages the third-party endpoints that receive signed
// domain events.
type SubscriberHandler struct {
	DB *gorm.DB
}

func NewSubscriberHandler(db *gorm.DB) *SubscriberHandler {
	return &SubscriberHandler{DB: db}
}

type subscriberRequest struct {
	Name     string            `json:"name"`
	URL      string            `json:"url" binding:"required"`
	Secret   string            `json:"secret"`
	Events   []string          `json:"events"`
	Headers  map[string]string `json:"headers"`
	IsActive *bool             `json:"is_active"`
}

func (h *SubscriberHandler) GetSubscribers(c *gin.Context) {
	var subs []models.Webhook
	if err := h.DB.Order("created_at DESC").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if subs == nil {
		subs = []models.Webhook{}
	}
	c.JSON(http.StatusOK, subs)
}

func (h *SubscriberHandler) CreateSubscriber(c *gin.Context) {
	var req subscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, _ := json.Marshal(req.Events)
	headers := "{}"
	if req.Headers != nil {
		raw, _ := json.Marshal(req.Headers)
		headers = string(raw)
	}

	sub := models.Webhook{
		ID:       uuid.New(),
		Name:     req.Name,
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   string(events),
		Headers:  headers,
		IsActive: true,
	}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}

	if err := h.DB.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create webhook"})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (h *SubscriberHandler) UpdateSubscriber(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	var sub models.Webhook
	if err := h.DB.First(&sub, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
		return
	}

	var req subscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{
		"name": req.Name,
		"url":  req.URL,
	}
	if req.Secret != "" {
		updates["secret"] = req.Secret
	}
	if req.Events != nil {
		raw, _ := json.Marshal(req.Events)
		updates["events"] = string(raw)
	}
	if req.Headers != nil {
		raw, _ := json.Marshal(req.Headers)
		updates["headers"] = string(raw)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := h.DB.Model(&sub).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update webhook"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *SubscriberHandler) DeleteSubscriber(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	result := h.DB.Delete(&models.Webhook{}, "id = ?", id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete webhook"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Webhook deleted"})
}

// GetSubscriberLogs returns the most recent delivery attempts for one
// subscriber, newest first.
func (h *SubscriberHandler) GetSubscriberLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	var logs []models.WebhookLog
	if err := h.DB.Where("webhook_id = ?", id).
		Order("created_at DESC").Limit(100).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []models.WebhookLog{}
	}

	c.JSON(http.StatusOK, logs)
}
