package models

import "time"

// Delivery status of a private message. Group messages stay at
// StatusSent; there is no per-recipient receipt tracking for groups.
// Status only ever advances sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message is a stored chat message. Exactly one of ReceiverID (private)
// or GroupID (group) is set. Content holds the sealed blob in the
// database and plaintext once unsealed for delivery.
type Message struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	ReceiverID *int      `db:"receiver_id" json:"receiver_id,omitempty"`
	GroupID    *int      `db:"group_id" json:"group_id,omitempty"`
	Content    string    `db:"content" json:"content"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	IsEdited   bool      `db:"is_edited" json:"is_edited"`
	Status     string    `db:"status" json:"status"`
	SenderName string    `db:"sender_name" json:"sender_name,omitempty"`
}

// IsGroup reports whether the message is addressed to a group room.
func (m Message) IsGroup() bool {
	return m.GroupID != nil
}
