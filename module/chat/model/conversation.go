package model

import "time"

const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"

	RoleAdmin  = "admin"
	RoleMember = "member"

	// MaxGroupMembers caps the roster including the creator.
	MaxGroupMembers = 200
)

// Conversation is the persisted record. A private conversation has exactly
// two members and at most one exists per unordered user pair (enforced by
// lookup-before-create in the chat service). Name is group-only.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	Kind           string    `json:"kind"` // private | group
	Name           string    `json:"name,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Member rows are never physically deleted; there is no leave operation.
type Member struct {
	ConversationID    string    `json:"conversation_id"`
	UserID            string    `json:"user_id"`
	Role              string    `json:"role"`
	JoinedAt          time.Time `json:"joined_at"`
	LastReadMessageID string    `json:"last_read_message_id,omitempty"`
}
