package notify

import (
	"time"
)

// Recipient is the shipment party a notification is addressed to.
type Recipient string

const (
	Sender   Recipient = "SENDER"
	Receiver Recipient = "RECEIVER"
)

// IsValid checks if the recipient is valid.
func (r Recipient) IsValid() bool {
	return r == Sender || r == Receiver
}

// Notification is a single outbound status message.
type Notification struct {
	Recipient  Recipient
	Phone      string
	TrackingID string
	Message    string
	// OfficeID is the branch that caused the message; it scopes the message log.
	OfficeID string
}

// Message is a persisted notification as shown in the message log.
type Message struct {
	ID         int64     `json:"id"`
	OfficeID   string    `json:"office_id,omitempty"`
	Recipient  Recipient `json:"recipient"`
	Phone      string    `json:"phone_number"`
	TrackingID string    `json:"tracking_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// SMS is the payload handed to the delivery queue.
type SMS struct {
	MessageID int64  `json:"message_id"`
	To        string `json:"to"`
	Body      string `json:"message"`
}

// Scope restricts message log reads. An empty OfficeID with All set sees everything.
type Scope struct {
	OfficeID string
	All      bool
}
