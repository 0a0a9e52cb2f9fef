// Package provider normalizes the two incompatible webhook wire formats (the
// self-hosted gateway protocol and the WhatsApp Business Cloud API) into one
// internal event model, and talks back to both provider APIs.
package provider

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind identifies which provider protocol a webhook body belongs to.
type Kind string

const (
	KindWAHA    Kind = "waha"
	KindMeta    Kind = "meta"
	KindUnknown Kind = ""
)

// Event is the uniform intermediate record produced by an adapter. Exactly
// one of Message or Ack is set; Type tells which.
type Event struct {
	Provider Kind
	Type     string // "message", "ack" or "other"
	Session  string // WAHA session name or Meta phone number id
	Message  *MessageEvent
	Ack      *AckEvent
}

// MessageEvent carries everything the ingestion pipeline needs from one
// provider-delivered message.
type MessageEvent struct {
	ExternalID  string
	From        string
	To          string
	FromMe      bool
	Timestamp   time.Time
	ContentType string // text, image, audio, video, document, other
	Body        string
	PushName    string
	HasMedia    bool
	Media       *MediaRef
	QuotedID    string
	// AltFrom is a secondary sender reference found elsewhere in the payload,
	// used to resolve opaque-reference senders to a real phone.
	AltFrom string
}

// MediaRef points at the attachment of a message using whichever of the three
// extraction strategies the payload supports.
type MediaRef struct {
	URL        string // directly fetchable provider URL (expires)
	Base64Data string // inline-encoded payload
	ProviderID string // provider media id for on-demand API fetch
	MimeType   string
	Filename   string
}

// AckEvent is a delivery-status update for a previously stored message.
type AckEvent struct {
	ExternalID string
	Status     string // sent, delivered, read, failed
}

// Adapter turns one raw webhook body into uniform events. A single cloud-API
// call can carry several message entries, hence the slice.
type Adapter interface {
	Parse(body []byte) ([]Event, error)
}

// Detect classifies a webhook body by structural signature: an event+session
// pair marks the gateway protocol, a whatsapp_business_account envelope marks
// the cloud protocol.
func Detect(body []byte) Kind {
	var probe struct {
		Event   string `json:"event"`
		Session string `json:"session"`
		Object  string `json:"object"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return KindUnknown
	}
	if probe.Event != "" && probe.Session != "" {
		return KindWAHA
	}
	if probe.Object == "whatsapp_business_account" {
		return KindMeta
	}
	return KindUnknown
}

// AdapterFor returns the adapter matching kind, or nil for unknown bodies.
func AdapterFor(kind Kind) Adapter {
	switch kind {
	case KindWAHA:
		return &WAHAAdapter{}
	case KindMeta:
		return &MetaAdapter{}
	}
	return nil
}

// DedupKey derives the canonical message key from a provider external id.
// Gateway serialized ids carry a fromMe prefix ("true_..."/"false_...") that
// differs between originals and echoes of the same message, so it is
// stripped; everything else passes through unchanged.
func DedupKey(externalID string) string {
	key := strings.TrimPrefix(externalID, "true_")
	key = strings.TrimPrefix(key, "false_")
	return key
}
