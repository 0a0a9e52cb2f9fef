package models

// WAHAWebhook is the envelope posted by the self-hosted gateway.
type WAHAWebhook struct {
	ID        string                 `json:"id"`
	Timestamp int64                  `json:"timestamp"`
	Event     string                 `json:"event"` // message, message.any, message.ack, ...
	Session   string                 `json:"session"`
	Metadata  map[string]interface{} `json:"metadata"`
	Me        struct {
		ID       string `json:"id"`
		PushName string `json:"pushName"`
	} `json:"me"`
	Payload WAHAPayload `json:"payload"`
	Engine  string      `json:"engine"`
}

// WAHAPayload carries the message or ack body of a gateway event.
type WAHAPayload struct {
	ID          string         `json:"id"`
	Timestamp   int64          `json:"timestamp"`
	From        string         `json:"from"`
	FromMe      bool           `json:"fromMe"`
	To          string         `json:"to"`
	Participant string         `json:"participant"`
	Body        string         `json:"body"`
	Type        string         `json:"type"` // chat, image, video, audio, ptt, document, ...
	HasMedia    bool           `json:"hasMedia"`
	Media       *WAHAMediaInfo `json:"media"`
	MediaURL    string         `json:"mediaUrl"`
	ReplyTo     string         `json:"replyTo"`
	Ack         int            `json:"ack"`
	AckName     string         `json:"ackName"` // SERVER, DEVICE, READ
	Data        *WAHAData      `json:"_data"`
}

// WAHAMediaInfo describes an attachment reference in a gateway webhook.
// Data, when present, carries the inline base64 payload.
type WAHAMediaInfo struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
}

// WAHAData is the provider-internal metadata blob attached to gateway events.
type WAHAData struct {
	ID struct {
		FromMe     bool   `json:"fromMe"`
		Remote     string `json:"remote"`
		ID         string `json:"id"`
		Serialized string `json:"_serialized"`
	} `json:"id"`
	NotifyName     string `json:"notifyName"`
	Author         string `json:"author"`
	Body           string `json:"body"`
	Type           string `json:"type"`
	From           string `json:"from"`
	To             string `json:"to"`
	Ack            int    `json:"ack"`
	QuotedStanzaID string `json:"quotedStanzaID"`
}
