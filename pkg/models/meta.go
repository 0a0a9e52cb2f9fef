package models

// MetaWebhookPayload represents the incoming JSON payload from the WhatsApp
// Business Cloud API.
type MetaWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value MetaChangeValue `json:"value"`
			Field string          `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

// MetaChangeValue carries either new messages or delivery statuses; a single
// webhook call holds only one of the two.
type MetaChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts,omitempty"`
	Messages []MetaMessage `json:"messages,omitempty"`
	Statuses []struct {
		ID          string `json:"id"`
		Status      string `json:"status"` // sent, delivered, read, failed
		Timestamp   string `json:"timestamp"`
		RecipientID string `json:"recipient_id"`
	} `json:"statuses,omitempty"`
}

// MetaMessage is one inbound message entry.
type MetaMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *MetaMedia `json:"image,omitempty"`
	Video    *MetaMedia `json:"video,omitempty"`
	Audio    *MetaMedia `json:"audio,omitempty"`
	Document *MetaMedia `json:"document,omitempty"`
	Context  *struct {
		From string `json:"from"`
		ID   string `json:"id"`
	} `json:"context,omitempty"`
}

// MetaMedia represents a media attachment reference in a cloud-API message.
// Media bytes are fetched on demand through the Graph API by ID.
type MetaMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}
