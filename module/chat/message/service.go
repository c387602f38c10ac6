package message

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	chatmodel "PChat/module/chat/model"
	usermodel "PChat/module/user/model"
	"PChat/logger"
	"PChat/service/storage"
	errs "PChat/tools/errs"
	"PChat/tools/ids"
)

// Events owned by the message log.
const (
	EventMessageCreated = "message_created"
	EventMessageRead    = "message_read"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Publisher is what the log needs from the room router: offer an event to
// every live subscriber of a conversation. Kept as an interface so the
// log stays testable without a router.
type Publisher interface {
	PublishEvent(conversationID, event string, payload any)
}

// Service is the append-only per-conversation message log. Append and the
// resulting publish happen under the conversation lock, so no observer
// can see a message that exists but was never offered for delivery, and
// two appends on one conversation always publish in append order.
type Service struct {
	msgs  storage.MessageStore
	convs storage.ConversationStore
	users storage.UserStore
	pub   Publisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex // conversation id -> lock
	now   func() time.Time
}

func NewService(msgs storage.MessageStore, convs storage.ConversationStore, users storage.UserStore, pub Publisher) *Service {
	return &Service{
		msgs:  msgs,
		convs: convs,
		users: users,
		pub:   pub,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (s *Service) convLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[conversationID]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// CreatedPayload is the message_created event body.
type CreatedPayload struct {
	MessageID      string                `json:"message_id"`
	ConversationID string                `json:"conversation_id"`
	Sender         usermodel.DisplayInfo `json:"sender"`
	Content        string                `json:"content"`
	Type           string                `json:"type"`
	ReplyToID      string                `json:"reply_to_id,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
	Status         string                `json:"status"`
}

// ReadPayload is the message_read event body.
type ReadPayload struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

// Append validates, stores and publishes a new message as one operation.
// Ids come from the snowflake generator, so order within a conversation
// is the order Append ran, even when two messages land in the same
// millisecond.
func (s *Service) Append(ctx context.Context, conversationID, senderID, content, msgType, replyToID string) (*chatmodel.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errs.ErrEmptyContent.Wrap()
	}
	if msgType == "" {
		msgType = chatmodel.MessageTypeText
	}

	l := s.convLock(conversationID)
	l.Lock()
	defer l.Unlock()

	m := &chatmodel.Message{
		MessageID:      ids.GenerateString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		ReplyToID:      replyToID,
		CreatedAt:      s.now(),
	}
	if err := s.msgs.Append(ctx, m); err != nil {
		return nil, err
	}
	if err := s.convs.Touch(ctx, conversationID, m.CreatedAt); err != nil {
		logger.Warnf("[message] touch conversation=%s err=%v", conversationID, err)
	}

	s.pub.PublishEvent(conversationID, EventMessageCreated, CreatedPayload{
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		Sender:         s.senderInfo(ctx, senderID),
		Content:        m.Content,
		Type:           m.Type,
		ReplyToID:      m.ReplyToID,
		Timestamp:      m.CreatedAt,
		Status:         chatmodel.MsgStatusSent,
	})
	return m, nil
}

// Page returns up to limit messages newest-first, strictly older than the
// cursor (a message id; empty means newest). Soft-deleted messages come
// back as tombstones with empty content so cursors stay stable.
func (s *Service) Page(ctx context.Context, conversationID string, limit int, beforeID string) ([]*chatmodel.Message, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	var beforeSeq int64
	if beforeID != "" {
		n, err := strconv.ParseInt(beforeID, 10, 64)
		if err != nil {
			return nil, errs.ErrNotFound.WrapMsg("bad cursor", "before", beforeID)
		}
		beforeSeq = n
	}
	return s.msgs.Page(ctx, conversationID, limit, beforeSeq)
}

// SetStatus records per-recipient delivery state. A transition to read is
// announced to the room so the sender sees the receipt.
func (s *Service) SetStatus(ctx context.Context, conversationID, messageID, userID, status string) error {
	m, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.ConversationID != conversationID {
		return errs.ErrNotFound.WrapMsg("message not in conversation", "id", messageID)
	}
	at := s.now()
	if err := s.msgs.SetStatus(ctx, &chatmodel.MessageStatus{
		MessageID: messageID,
		UserID:    userID,
		Status:    status,
		Timestamp: at,
	}); err != nil {
		return err
	}
	if status == chatmodel.MsgStatusRead {
		s.pub.PublishEvent(conversationID, EventMessageRead, ReadPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			UserID:         userID,
			ReadAt:         at,
		})
	}
	return nil
}

// MarkRead is the mark_read operation.
func (s *Service) MarkRead(ctx context.Context, conversationID, messageID, userID string) error {
	return s.SetStatus(ctx, conversationID, messageID, userID, chatmodel.MsgStatusRead)
}

// SoftDelete clears the content and stamps deletedAt; the record keeps
// its position in the log. Only the sender may delete.
func (s *Service) SoftDelete(ctx context.Context, messageID, byUserID string) error {
	m, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != byUserID {
		return errs.ErrForbidden.WrapMsg("only the sender can delete")
	}

	l := s.convLock(m.ConversationID)
	l.Lock()
	defer l.Unlock()

	at := s.now()
	m.Content = ""
	m.DeletedAt = &at
	return s.msgs.Update(ctx, m)
}

// Get returns one message record.
func (s *Service) Get(ctx context.Context, messageID string) (*chatmodel.Message, error) {
	return s.msgs.Get(ctx, messageID)
}

// StatusOf lists per-recipient statuses for one message.
func (s *Service) StatusOf(ctx context.Context, messageID string) ([]chatmodel.MessageStatus, error) {
	return s.msgs.StatusOf(ctx, messageID)
}

func (s *Service) senderInfo(ctx context.Context, senderID string) usermodel.DisplayInfo {
	u, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		// event still goes out; the client falls back to the id
		return usermodel.DisplayInfo{UserID: senderID}
	}
	return u.Display()
}
