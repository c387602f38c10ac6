package model

import (
	"strconv"
	"time"
)

const (
	MessageTypeText = "text"

	MsgStatusSent      = "sent"
	MsgStatusDelivered = "delivered"
	MsgStatusRead      = "read"
)

// Message id is a snowflake serialized as decimal. Ids are strictly
// increasing per conversation, so they double as the paging cursor;
// CreatedAt is for display only and plays no part in ordering.
type Message struct {
	MessageID      string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	ReplyToID      string     `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func (m *Message) Deleted() bool { return m.DeletedAt != nil }

// Seq parses the id for cursor comparisons. Zero on malformed ids.
func (m *Message) Seq() int64 {
	n, _ := strconv.ParseInt(m.MessageID, 10, 64)
	return n
}

// MessageStatus tracks delivery per (message, recipient) pair,
// independent of the message record itself.
type MessageStatus struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
