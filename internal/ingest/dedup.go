package ingest

import (
	"context"
	"errors"

	"whatsapp-crm/internal/media"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/provider"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DedupGate enforces the at-most-one-row guarantee per provider message id.
type DedupGate struct {
	DB    *gorm.DB
	Media *media.Pipeline
}

// Check looks an inbound external id up by the canonical dedup key, falling
// back to the raw external id for rows stored before the key scheme existed.
// It returns the existing message (nil on miss) and the derived key.
func (g *DedupGate) Check(ctx context.Context, externalID string) (*models.Message, string, error) {
	key := provider.DedupKey(externalID)

	var msg models.Message
	err := g.DB.WithContext(ctx).
		Where("dedup_key = ? OR external_id = ?", key, externalID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, key, nil
	}
	if err != nil {
		return nil, key, err
	}
	return &msg, key, nil
}

// RepairOnRedelivery runs a single best-effort media recovery for a duplicate
// hit: providers sometimes omit media on the first delivery and include it on
// a retry, so the current delivery's reference is the one worth trying.
func (g *DedupGate) RepairOnRedelivery(ctx context.Context, existing *models.Message, inst *models.WhatsAppConfig, ref *provider.MediaRef) {
	if existing.MediaURL != "" || existing.ContentType == "text" || ref == nil {
		return
	}

	url, mimeType, err := g.Media.Extract(ctx, inst, ref, existing.ExternalID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"message_id": existing.ID,
			"error":      err,
		}).Debug("media recovery on redelivery failed")
		return
	}

	updates := map[string]interface{}{"media_url": url}
	if mimeType != "" {
		updates["media_mime_type"] = mimeType
	}
	if err := g.DB.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("message_id", existing.ID).Warn("persisting recovered media failed")
	}
}
