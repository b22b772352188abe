package models

import "time"

// Outbound websocket event types.
const (
	EventReceiveMessage = "receive_message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventMessagesRead   = "messages_read_update"
	EventOnlineUsers    = "online_users_update"
	EventGroupCreated   = "group_created"
)

// Inbound websocket intent types.
const (
	IntentSendMessage   = "send_message"
	IntentMarkRead      = "mark_read"
	IntentEditMessage   = "edit_message"
	IntentDeleteMessage = "delete_message"
	IntentJoinGroup     = "join_group"
	IntentLeaveGroup    = "leave_group"
)

// ServerEvent is pushed to clients over websocket connections.
type ServerEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
	Content   string   `json:"content,omitempty"`
	ReaderID  int      `json:"reader_id,omitempty"`
	UserIDs   []int    `json:"user_ids,omitempty"`
	GroupID   int      `json:"group_id,omitempty"`
	GroupName string   `json:"group_name,omitempty"`
}

// ClientEvent is an intent received from a client. The sender identity
// is always taken from the authenticated session, never from the
// payload. SenderID is only meaningful for mark_read, where it names
// the peer whose messages are being read.
type ClientEvent struct {
	Type       string    `json:"type"`
	ReceiverID int       `json:"receiver_id,omitempty"`
	GroupID    int       `json:"group_id,omitempty"`
	SenderID   int       `json:"sender_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	MessageID  int       `json:"message_id,omitempty"`
}
