package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"whatsapp-crm/pkg/models"
)

// WAHAAdapter parses self-hosted gateway webhooks.
type WAHAAdapter struct{}

func (a *WAHAAdapter) Parse(body []byte) ([]Event, error) {
	var wh models.WAHAWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("parse gateway webhook: %w", err)
	}

	switch wh.Event {
	case "message.ack":
		return a.parseAck(&wh), nil
	case "message", "message.any":
		return a.parseMessage(&wh), nil
	default:
		return []Event{{Provider: KindWAHA, Type: "other", Session: wh.Session}}, nil
	}
}

func (a *WAHAAdapter) parseAck(wh *models.WAHAWebhook) []Event {
	externalID := wh.Payload.ID
	if externalID == "" && wh.Payload.Data != nil {
		externalID = wh.Payload.Data.ID.Serialized
	}

	var status string
	switch wh.Payload.AckName {
	case "SERVER":
		status = "sent"
	case "DEVICE":
		status = "delivered"
	case "READ", "PLAYED":
		status = "read"
	case "ERROR":
		status = "failed"
	default:
		return []Event{{Provider: KindWAHA, Type: "other", Session: wh.Session}}
	}

	return []Event{{
		Provider: KindWAHA,
		Type:     "ack",
		Session:  wh.Session,
		Ack:      &AckEvent{ExternalID: externalID, Status: status},
	}}
}

func (a *WAHAAdapter) parseMessage(wh *models.WAHAWebhook) []Event {
	p := wh.Payload

	msg := &MessageEvent{
		ExternalID:  p.ID,
		From:        p.From,
		To:          p.To,
		FromMe:      p.FromMe,
		Timestamp:   time.Unix(p.Timestamp, 0),
		ContentType: wahaContentType(p.Type),
		Body:        p.Body,
		HasMedia:    p.HasMedia,
		QuotedID:    p.ReplyTo,
		AltFrom:     p.Participant,
	}

	if p.Data != nil {
		msg.PushName = p.Data.NotifyName
		if msg.QuotedID == "" {
			msg.QuotedID = p.Data.QuotedStanzaID
		}
		if msg.AltFrom == "" {
			msg.AltFrom = p.Data.Author
		}
	}

	if p.HasMedia {
		ref := &MediaRef{URL: p.MediaURL}
		if p.Media != nil {
			if p.Media.URL != "" {
				ref.URL = p.Media.URL
			}
			ref.Base64Data = p.Media.Data
			ref.MimeType = p.Media.MimeType
			ref.Filename = p.Media.Filename
		}
		ref.ProviderID = p.ID // gateway media API is keyed by message id
		msg.Media = ref
	}

	return []Event{{
		Provider: KindWAHA,
		Type:     "message",
		Session:  wh.Session,
		Message:  msg,
	}}
}

// wahaContentType maps gateway message types onto the internal content types.
func wahaContentType(t string) string {
	switch t {
	case "chat", "text", "":
		return "text"
	case "image", "sticker":
		return "image"
	case "video":
		return "video"
	case "audio", "ptt":
		return "audio"
	case "document":
		return "document"
	default:
		return "other"
	}
}
