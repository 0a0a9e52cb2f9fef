package api

import (
	"net/http"

	"whatsapp-crm/internal/media"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageHandler struct {
	DB    *gorm.DB
	Media *media.Pipeline
}

func NewMessageHandler(db *gorm.DB, mediaPipeline *media.Pipeline) *MessageHandler {
	return &MessageHandler{DB: db, Media: mediaPipeline}
}

// GetConversationMessages lists a conversation thread, oldest first.
func (h *MessageHandler) GetConversationMessages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var messages []models.Message
	if err := h.DB.Where("conversation_id = ?", convID).
		Order("sent_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

// RepairMedia re-attempts media extraction for one stored message. Clients
// call this when they hit a message whose media_url is still empty.
func (h *MessageHandler) RepairMedia(c *gin.Context) {
	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	result := h.Media.Repair(c.Request.Context(), h.DB, msgID)
	switch result {
	case media.RepairSuccess, media.RepairAlreadyRepaired:
		var msg models.Message
		if err := h.DB.First(&msg, "id = ?", msgID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result, "media_url": msg.MediaURL})
	case media.RepairExpired:
		c.JSON(http.StatusGone, gin.H{"result": result})
	case media.RepairTimeout:
		c.JSON(http.StatusTooManyRequests, gin.H{"result": result})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"result": result})
	}
}
