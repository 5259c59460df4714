package models

// InboundMessage is the form-encoded payload the messaging gateway posts
// to the webhook. Field names follow the gateway's convention.
type InboundMessage struct {
	From string
	Body string
	To   string
}

// WebhookResponse is the status envelope returned to the gateway. The
// webhook never surfaces an HTTP 5xx for processing failures; errors are
// reported inside the envelope instead.
type WebhookResponse struct {
	Status    string `json:"status"`
	ContactID int64  `json:"contact_id,omitempty"`
	Reply     string `json:"reply,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// ContactPage is one page of the contact listing, ordered by last
// contact descending.
type ContactPage struct {
	Contacts []Contact `json:"contacts"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"has_more"`
}

// Conversation bundles a contact with its ordered message history.
type Conversation struct {
	Contact  Contact   `json:"contact"`
	Messages []Message `json:"messages"`
}
