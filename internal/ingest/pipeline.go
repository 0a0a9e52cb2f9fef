package ingest

import (
	"context"
	"errors"

	"whatsapp-crm/internal/media"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/provider"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Pipeline is the provider-agnostic ingestion flow downstream of the
// adapters: identity -> lead -> conversation -> dedup -> media -> write.
type Pipeline struct {
	DB            *gorm.DB
	Leads         *LeadResolver
	Conversations *ConversationResolver
	Dedup         *DedupGate
	Media         *media.Pipeline
	Writer        *Writer
}

func NewPipeline(db *gorm.DB, lid LIDResolver, mediaPipeline *media.Pipeline) *Pipeline {
	return &Pipeline{
		DB:            db,
		Leads:         &LeadResolver{DB: db, LID: lid},
		Conversations: &ConversationResolver{DB: db},
		Dedup:         &DedupGate{DB: db, Media: mediaPipeline},
		Media:         mediaPipeline,
		Writer:        &Writer{DB: db},
	}
}

// Process handles one uniform provider event against its instance.
func (p *Pipeline) Process(ctx context.Context, ev *provider.Event, inst *models.WhatsAppConfig) (*Result, error) {
	switch ev.Type {
	case "ack":
		if err := p.Writer.UpdateAckStatus(ctx, ev.Ack.ExternalID, ev.Ack.Status); err != nil {
			return nil, err
		}
		return &Result{Status: StatusAck}, nil
	case "message":
		return p.processMessage(ctx, ev.Message, inst)
	default:
		return &Result{Status: StatusIgnored, Reason: ReasonUnhandledEvent}, nil
	}
}

func (p *Pipeline) processMessage(ctx context.Context, ev *provider.MessageEvent, inst *models.WhatsAppConfig) (*Result, error) {
	lead, reason, err := p.Leads.Resolve(ctx, ev, inst)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &Result{Status: StatusIgnored, Reason: reason}, nil
	}

	conv, err := p.Conversations.Resolve(ctx, lead.ID, inst.ID)
	if err != nil {
		return nil, err
	}

	existing, dedupKey, err := p.Dedup.Check(ctx, ev.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.Dedup.RepairOnRedelivery(ctx, existing, inst, ev.Media)
		return &Result{Status: StatusDuplicate, MessageID: existing.ID}, nil
	}

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		Direction:      "in",
		SenderType:     "lead",
		ContentType:    ev.ContentType,
		Content:        ev.Body,
		ExternalID:     ev.ExternalID,
		DedupKey:       dedupKey,
		QuotedID:       ev.QuotedID,
		Status:         "delivered",
		SentAt:         ev.Timestamp,
	}
	if ev.FromMe {
		msg.Direction = "out"
		msg.SenderType = "agent"
		msg.Status = "sent"
	}

	if ev.HasMedia && ev.Media != nil {
		msg.MediaRef = ev.Media.ProviderID
		msg.MediaMimeType = ev.Media.MimeType

		url, mimeType, err := p.Media.Extract(ctx, inst, ev.Media, ev.ExternalID)
		switch {
		case err == nil:
			msg.MediaURL = url
			if mimeType != "" {
				msg.MediaMimeType = mimeType
			}
		case errors.Is(err, provider.ErrMediaGone):
			logrus.WithField("external_id", ev.ExternalID).Info("provider media already expired at ingestion")
		default:
			// Degrade gracefully: record the message, leave the media for
			// the lazy repair flow.
			logrus.WithFields(logrus.Fields{
				"external_id": ev.ExternalID,
				"error":       err,
			}).Warn("media extraction failed, message stored for lazy recovery")
		}
	}

	stored, duplicate, err := p.Writer.Write(ctx, msg)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &Result{Status: StatusDuplicate, MessageID: stored.ID}, nil
	}
	return &Result{Status: StatusProcessed, MessageID: stored.ID}, nil
}
