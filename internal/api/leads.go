package api

import (
	"net/http"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/phone"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadHandler struct {
	DB *gorm.DB
}

func NewLeadHandler(db *gorm.DB) *LeadHandler {
	return &LeadHandler{DB: db}
}

// GetLeads lists leads, newest activity first. The optional ?search= filter
// matches by name substring or by any normalization of the typed phone.
func (h *LeadHandler) GetLeads(c *gin.Context) {
	query := h.DB.Model(&models.Lead{}).Order("updated_at DESC")

	if search := c.Query("search"); search != "" {
		if phone.LooksLikePhone(search) {
			query = query.Where("phone IN ?", phone.Candidates(search))
		} else {
			query = query.Where("name LIKE ?", "%"+search+"%")
		}
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var leads []models.Lead
	if err := query.Find(&leads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}

	c.JSON(http.StatusOK, leads)
}

func (h *LeadHandler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var lead models.Lead
	if err := h.DB.First(&lead, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}

	c.JSON(http.StatusOK, lead)
}

// GetLeadConversations lists the conversation threads of one lead.
func (h *LeadHandler) GetLeadConversations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var conversations []models.Conversation
	if err := h.DB.Where("lead_id = ?", id).
		Order("last_message_at DESC").Find(&conversations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	c.JSON(http.StatusOK, conversations)
}
