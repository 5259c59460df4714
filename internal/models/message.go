package models

import (
	"time"
)

// Direction tells whether a message originated from the external user or
// from the system.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Message is one entry in a contact's conversation history. Messages are
// immutable once created; ordering is by (created_at, id) ascending.
type Message struct {
	ID         int64     `json:"id"`
	ContactID  int64     `json:"contact_id"`
	Direction  Direction `json:"direction"`
	Body       string    `json:"body"`
	GatewaySID *string   `json:"gateway_sid,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
