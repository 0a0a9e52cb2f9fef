package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"whatsapp-crm/pkg/models"
)

// MetaAdapter parses WhatsApp Business Cloud API webhooks.
type MetaAdapter struct{}

func (a *MetaAdapter) Parse(body []byte) ([]Event, error) {
	var wh models.MetaWebhookPayload
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("parse cloud webhook: %w", err)
	}

	var events []Event
	for _, entry := range wh.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			events = append(events, a.parseValue(&change.Value)...)
		}
	}
	return events, nil
}

func (a *MetaAdapter) parseValue(v *models.MetaChangeValue) []Event {
	session := v.Metadata.PhoneNumberID

	var events []Event
	for _, st := range v.Statuses {
		events = append(events, Event{
			Provider: KindMeta,
			Type:     "ack",
			Session:  session,
			Ack:      &AckEvent{ExternalID: st.ID, Status: st.Status},
		})
	}

	// Push names arrive in a parallel contacts array keyed by wa_id.
	names := map[string]string{}
	for _, c := range v.Contacts {
		names[c.WaID] = c.Profile.Name
	}

	for i := range v.Messages {
		m := &v.Messages[i]
		msg := &MessageEvent{
			ExternalID:  m.ID,
			From:        m.From,
			To:          v.Metadata.DisplayPhoneNumber,
			FromMe:      false, // cloud webhooks only deliver inbound messages
			Timestamp:   parseUnixString(m.Timestamp),
			ContentType: metaContentType(m.Type),
			PushName:    names[m.From],
		}
		if m.Text != nil {
			msg.Body = m.Text.Body
		}
		if m.Context != nil {
			msg.QuotedID = m.Context.ID
		}
		if ref := metaMediaRef(m); ref != nil {
			msg.HasMedia = true
			msg.Media = ref
			if msg.Body == "" {
				msg.Body = captionOf(m)
			}
		}
		events = append(events, Event{
			Provider: KindMeta,
			Type:     "message",
			Session:  session,
			Message:  msg,
		})
	}
	return events
}

func metaMediaRef(m *models.MetaMessage) *MediaRef {
	var media *models.MetaMedia
	switch m.Type {
	case "image":
		media = m.Image
	case "video":
		media = m.Video
	case "audio":
		media = m.Audio
	case "document":
		media = m.Document
	}
	if media == nil {
		return nil
	}
	return &MediaRef{
		ProviderID: media.ID,
		MimeType:   media.MimeType,
		Filename:   media.Filename,
	}
}

func captionOf(m *models.MetaMessage) string {
	switch {
	case m.Image != nil:
		return m.Image.Caption
	case m.Video != nil:
		return m.Video.Caption
	case m.Document != nil:
		return m.Document.Caption
	}
	return ""
}

func metaContentType(t string) string {
	switch t {
	case "text":
		return "text"
	case "image", "sticker":
		return "image"
	case "video":
		return "video"
	case "audio", "voice":
		return "audio"
	case "document":
		return "document"
	default:
		return "other"
	}
}

func parseUnixString(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
