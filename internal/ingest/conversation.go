package ingest

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationResolver selects the canonical thread for a lead+instance pair.
type ConversationResolver struct {
	DB *gorm.DB
}

// Resolve returns the most recently active open-or-pending conversation for
// the pair, or opens a new one. Resolved threads are never reused for new
// inbound traffic.
func (r *ConversationResolver) Resolve(ctx context.Context, leadID, instanceID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.DB.WithContext(ctx).
		Where("lead_id = ? AND instance_id = ? AND status IN ?", leadID, instanceID, []string{"open", "pending"}).
		Order("last_message_at DESC").
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ID:            uuid.New(),
		LeadID:        leadID,
		InstanceID:    instanceID,
		Status:        "open",
		LastMessageAt: time.Now(),
	}
	if err := r.DB.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}
