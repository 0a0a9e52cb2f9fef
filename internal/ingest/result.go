// Package ingest turns uniform provider events into CRM state: it resolves
// the sender to a lead, routes the message into a conversation, enforces the
// dedup guarantee and writes the message row, enqueuing domain events for the
// outbound dispatcher.
package ingest

import "github.com/google/uuid"

// Status classifies the outcome of processing one provider event.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDuplicate Status = "duplicate"
	StatusIgnored   Status = "ignored"
	StatusAck       Status = "ack_processed"
)

// Reasons for StatusIgnored. These are reported as success to the provider;
// a non-2xx answer would only cause redelivery storms.
const (
	ReasonGroupChat      = "group_chat"
	ReasonBroadcast      = "broadcast"
	ReasonSelfMessage    = "self_message"
	ReasonUnresolvedLID  = "unresolved_recipient"
	ReasonUnhandledEvent = "unhandled_event"
)

// Result is returned to the webhook handler for the HTTP response.
type Result struct {
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	MessageID uuid.UUID `json:"message_id,omitempty"`
}
