package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead represents a contactable person resolved from an inbound message or
// created through the CRM API.
type Lead struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Phone       string     `gorm:"type:varchar(20);index" json:"phone"` // digits only, country code stripped
	Name        string     `gorm:"type:varchar(255)" json:"name"`
	IsLID       bool       `gorm:"default:false" json:"is_lid"`
	LIDRef      string     `gorm:"column:lid_ref;type:varchar(64);index" json:"lid_ref"` // raw opaque reference when unresolved
	AssignedTo  *uuid.UUID `gorm:"type:uuid" json:"assigned_to"`
	Temperature string     `gorm:"type:varchar(20);default:'cold'" json:"temperature"`
	Source      string     `gorm:"type:varchar(50)" json:"source"`
	Status      string     `gorm:"type:varchar(20);default:'active'" json:"status"` // active, archived, converted, lost
	StageID     *uuid.UUID `gorm:"type:uuid" json:"stage_id"`
	Labels      string     `gorm:"type:text" json:"labels"` // JSON array string
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// Conversation is a channel-scoped thread belonging to one lead and one
// provider instance.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID        uuid.UUID `gorm:"type:uuid;index;not null" json:"lead_id"`
	InstanceID    uuid.UUID `gorm:"type:uuid;index;not null" json:"instance_id"`
	Status        string    `gorm:"type:varchar(20);default:'open'" json:"status"` // open, pending, resolved
	UnreadCount   int       `gorm:"default:0" json:"unread_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is one inbound or outbound communication unit. DedupKey is the
// canonical uniqueness key; ExternalID is kept for legacy lookups only.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null" json:"conversation_id"`
	LeadID         uuid.UUID `gorm:"type:uuid;index;not null" json:"lead_id"`
	Direction      string    `gorm:"type:varchar(10);not null" json:"direction"`          // in, out
	SenderType     string    `gorm:"type:varchar(10);default:'lead'" json:"sender_type"`  // lead, agent, bot
	ContentType    string    `gorm:"type:varchar(20);default:'text'" json:"content_type"` // text, image, audio, video, document, other
	Content        string    `gorm:"type:text" json:"content"`
	MediaURL       string    `gorm:"type:text" json:"media_url"` // durable storage ref, empty until pipeline completes
	MediaMimeType  string    `gorm:"type:varchar(100)" json:"media_mime_type"`
	MediaRef       string    `gorm:"type:varchar(255)" json:"-"` // provider media id, kept for lazy recovery
	ExternalID     string    `gorm:"type:varchar(255);index" json:"external_id"`
	DedupKey       string    `gorm:"type:varchar(255);uniqueIndex" json:"dedup_key"`
	QuotedID       string    `gorm:"type:varchar(255)" json:"quoted_id"`
	Status         string    `gorm:"type:varchar(20);default:'sent'" json:"status"` // sent, delivered, read, failed
	SentAt         time.Time `json:"sent_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// WhatsAppConfig is one configured provider connection (WAHA session or Meta
// cloud phone number). Read-only to the ingestion core.
type WhatsAppConfig struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Provider  string    `gorm:"type:varchar(20);not null" json:"provider"` // waha, meta
	Session   string    `gorm:"type:varchar(255);index" json:"session"`    // WAHA session name or Meta phone number id
	BaseURL   string    `gorm:"type:text" json:"base_url"`
	Token     string    `gorm:"type:text" json:"-"`
	OwnNumber string    `gorm:"type:varchar(20)" json:"own_number"` // registered number, for self-message suppression
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhatsAppConfig) TableName() string {
	return "whatsapp_configs"
}

// WebhookQueueItem is a persisted domain event awaiting delivery to
// subscribers.
type WebhookQueueItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Event     string    `gorm:"type:varchar(100);not null;index" json:"event"`
	Payload   string    `gorm:"type:text" json:"payload"` // JSON
	Processed bool      `gorm:"default:false;index" json:"processed"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WebhookQueueItem) TableName() string {
	return "webhook_queue_items"
}

// Webhook is a third-party subscriber endpoint.
type Webhook struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Secret    string    `gorm:"type:text" json:"-"`
	Events    string    `gorm:"type:text" json:"events"`  // JSON array of event names
	Headers   string    `gorm:"type:text" json:"headers"` // JSON object of custom headers
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Webhook) TableName() string {
	return "webhooks"
}

// WebhookLog is an append-only record of one delivery attempt.
type WebhookLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WebhookID    uuid.UUID  `gorm:"type:uuid;index" json:"webhook_id"`
	QueueItemID  uuid.UUID  `gorm:"type:uuid;index" json:"queue_item_id"`
	Event        string     `gorm:"type:varchar(100)" json:"event"`
	Payload      string     `gorm:"type:text" json:"payload"`
	HTTPStatus   int        `json:"http_status"`
	ResponseBody string     `gorm:"type:text" json:"response_body"` // truncated
	Attempt      int        `json:"attempt"`
	Success      bool       `json:"success"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
