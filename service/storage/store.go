package storage

import (
	"context"
	"time"

	chatmodel "PChat/module/chat/model"
	usermodel "PChat/module/user/model"
)

// Persisted-entity stores. The realtime core only ever reads membership
// through ConversationStore and writes through MessageStore/UserStore
// behind its own components; the HTTP surface owns the rest.
//
// Two implementations exist: redis (production) and in-memory (tests,
// dev without redis). Both live in this package.

type UserStore interface {
	Create(ctx context.Context, u *usermodel.User) error
	GetByID(ctx context.Context, id string) (*usermodel.User, error)
	// FindByIdentifier resolves phone, email or username.
	FindByIdentifier(ctx context.Context, identifier string) (*usermodel.User, error)
	Update(ctx context.Context, u *usermodel.User) error
	// SetStatus is the presence write path. lastSeen is nil for online.
	SetStatus(ctx context.Context, id, status string, lastSeen *time.Time) error
	Search(ctx context.Context, q string) ([]*usermodel.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *usermodel.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*usermodel.Session, error)
	Delete(ctx context.Context, hash string) error
	Touch(ctx context.Context, hash string, at time.Time) error
}

type ConversationStore interface {
	// Create stores the conversation and its initial roster atomically
	// from the caller's perspective.
	Create(ctx context.Context, c *chatmodel.Conversation, members []chatmodel.Member) error
	Get(ctx context.Context, id string) (*chatmodel.Conversation, error)
	MembersOf(ctx context.Context, conversationID string) ([]chatmodel.Member, error)
	ConversationsOf(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	// FindPrivate looks up the private conversation for an unordered
	// user pair; ErrNotFound when none exists.
	FindPrivate(ctx context.Context, userA, userB string) (*chatmodel.Conversation, error)
	Touch(ctx context.Context, conversationID string, at time.Time) error
}

type MessageStore interface {
	Append(ctx context.Context, m *chatmodel.Message) error
	Get(ctx context.Context, messageID string) (*chatmodel.Message, error)
	// Page returns up to limit messages newest-first, strictly older than
	// beforeSeq (0 means "from the newest"). Tombstones are included.
	Page(ctx context.Context, conversationID string, limit int, beforeSeq int64) ([]*chatmodel.Message, error)
	Update(ctx context.Context, m *chatmodel.Message) error
	SetStatus(ctx context.Context, st *chatmodel.MessageStatus) error
	StatusOf(ctx context.Context, messageID string) ([]chatmodel.MessageStatus, error)
}

// Stores bundles the four interfaces for wiring.
type Stores struct {
	Users    UserStore
	Sessions SessionStore
	Convs    ConversationStore
	Msgs     MessageStore
}
