package dispatch

import (
	"context"
	"encoding/json"

	"whatsapp-crm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Enrich merges the raw queue payload with the current state of the entities
// it references. Reads are read-through on purpose: subscribers get the lead
// as it is at delivery time, not as it was when the event fired.
func Enrich(ctx context.Context, db *gorm.DB, event string, rawPayload string) map[string]interface{} {
	data := map[string]interface{}{}
	if err := json.Unmarshal([]byte(rawPayload), &data); err != nil {
		logrus.WithFields(logrus.Fields{
			"event": event,
			"error": err,
		}).Warn("queue payload is not valid JSON, delivering raw")
		return map[string]interface{}{"raw": rawPayload}
	}

	if leadID, ok := data["lead_id"].(string); ok && leadID != "" {
		var lead models.Lead
		if err := db.WithContext(ctx).First(&lead, "id = ?", leadID).Error; err == nil {
			snapshot := map[string]interface{}{
				"id":          lead.ID,
				"phone":       lead.Phone,
				"name":        lead.Name,
				"status":      lead.Status,
				"temperature": lead.Temperature,
				"source":      lead.Source,
			}
			if lead.AssignedTo != nil {
				snapshot["assigned_to"] = lead.AssignedTo
			}
			if lead.StageID != nil {
				snapshot["stage_id"] = lead.StageID
			}
			if lead.Labels != "" {
				var labels []interface{}
				if json.Unmarshal([]byte(lead.Labels), &labels) == nil {
					snapshot["labels"] = labels
				}
			}
			data["lead"] = snapshot
		}
	}

	if msgID, ok := data["message_id"].(string); ok && msgID != "" {
		var msg models.Message
		if err := db.WithContext(ctx).First(&msg, "id = ?", msgID).Error; err == nil {
			data["message"] = map[string]interface{}{
				"id":           msg.ID,
				"direction":    msg.Direction,
				"content_type": msg.ContentType,
				"content":      msg.Content,
				"media_url":    msg.MediaURL,
				"status":       msg.Status,
				"external_id":  msg.ExternalID,
				"sent_at":      msg.SentAt,
			}
		}
	}

	return data
}
