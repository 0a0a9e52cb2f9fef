package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Writer inserts messages atomically under the dedup key and emits the
// derived domain event.
type Writer struct {
	DB *gorm.DB
}

// Write inserts msg with an on-conflict-do-nothing policy on the dedup key.
// A conflict (two concurrent deliveries racing) is reported as a duplicate,
// returning the pre-existing row, not an error.
func (w *Writer) Write(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	res := w.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(msg)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		var existing models.Message
		err := w.DB.WithContext(ctx).Where("dedup_key = ?", msg.DedupKey).First(&existing).Error
		if err != nil {
			return nil, false, err
		}
		return &existing, true, nil
	}

	if err := w.bumpConversation(ctx, msg); err != nil {
		logrus.WithError(err).WithField("conversation_id", msg.ConversationID).Warn("conversation activity update failed")
	}
	w.enqueueEvent(ctx, msg)
	return msg, false, nil
}

func (w *Writer) bumpConversation(ctx context.Context, msg *models.Message) error {
	updates := map[string]interface{}{
		"last_message_at": time.Now(),
	}
	if msg.Direction == "in" {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	}
	return w.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Updates(updates).Error
}

func (w *Writer) enqueueEvent(ctx context.Context, msg *models.Message) {
	event := "message.received"
	if msg.Direction == "out" {
		event = "message.sent"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"lead_id":         msg.LeadID,
		"external_id":     msg.ExternalID,
		"content_type":    msg.ContentType,
		"direction":       msg.Direction,
	})
	if err != nil {
		logrus.WithError(err).Error("marshal queue payload failed")
		return
	}

	item := models.WebhookQueueItem{
		ID:      uuid.New(),
		Event:   event,
		Payload: string(payload),
	}
	if err := w.DB.WithContext(ctx).Create(&item).Error; err != nil {
		// Event delivery is best-effort and decoupled from ingestion.
		logrus.WithError(err).WithField("event", event).Error("enqueue domain event failed")
	}
}

// UpdateAckStatus applies a delivery-status update by external id. The status
// hierarchy (sent < delivered < read) is never downgraded; "failed" is
// terminal and always applied.
func (w *Writer) UpdateAckStatus(ctx context.Context, externalID, status string) error {
	var msg models.Message
	err := w.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithField("external_id", externalID).Debug("ack for unknown message")
		return nil
	}
	if err != nil {
		return err
	}

	hierarchy := map[string]int{"sent": 1, "delivered": 2, "read": 3}
	if status != "failed" {
		cur, curOK := hierarchy[msg.Status]
		next, nextOK := hierarchy[status]
		if curOK && nextOK && next <= cur {
			return nil
		}
	}

	return w.DB.WithContext(ctx).Model(&msg).Update("status", status).Error
}
