package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	chatmodel "PChat/module/chat/model"
	usermodel "PChat/module/user/model"
	errs "PChat/tools/errs"
)

// In-memory implementations of the store interfaces. Used by tests and by
// dev runs without a redis (REDIS_ADDR empty). Same contracts as the redis
// implementations, including ErrNotFound semantics.

func NewMemoryStores() Stores {
	return Stores{
		Users:    NewMemoryUsers(),
		Sessions: NewMemorySessions(),
		Convs:    NewMemoryConversations(),
		Msgs:     NewMemoryMessages(),
	}
}

// ----- users -----

type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*usermodel.User
	byIdent map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[string]*usermodel.User),
		byIdent: make(map[string]string),
	}
}

func (s *MemoryUsers) Create(_ context.Context, u *usermodel.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.byID[u.UserID] = &cp
	for _, ident := range identifiers(u) {
		s.byIdent[strings.ToLower(ident)] = u.UserID
	}
	return nil
}

func (s *MemoryUsers) GetByID(_ context.Context, id string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("user", "id", id)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUsers) FindByIdentifier(_ context.Context, identifier string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdent[strings.ToLower(identifier)]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("identifier", "value", identifier)
	}
	u := s.byID[id]
	cp := *u
	return &cp, nil
}

func (s *MemoryUsers) Update(_ context.Context, u *usermodel.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.UserID]; !ok {
		return errs.ErrNotFound.WrapMsg("user", "id", u.UserID)
	}
	cp := *u
	s.byID[u.UserID] = &cp
	return nil
}

func (s *MemoryUsers) SetStatus(_ context.Context, id, status string, lastSeen *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("user", "id", id)
	}
	u.Status = status
	u.LastSeen = lastSeen
	return nil
}

func (s *MemoryUsers) Search(_ context.Context, q string) ([]*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(q)
	var out []*usermodel.User
	for _, u := range s.byID {
		if matchesUser(u, q, needle) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ----- sessions -----

type MemorySessions struct {
	mu     sync.RWMutex
	byHash map[string]*usermodel.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{byHash: make(map[string]*usermodel.Session)}
}

func (s *MemorySessions) Create(_ context.Context, sess *usermodel.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.byHash[sess.TokenHash] = &cp
	return nil
}

func (s *MemorySessions) GetByTokenHash(_ context.Context, hash string) (*usermodel.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byHash[hash]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("session")
	}
	cp := *sess
	return &cp, nil
}

func (s *MemorySessions) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, hash)
	return nil
}

func (s *MemorySessions) Touch(_ context.Context, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[hash]
	if !ok {
		return errs.ErrNotFound.WrapMsg("session")
	}
	sess.LastActivity = at
	return nil
}

// ----- conversations -----

type MemoryConversations struct {
	mu        sync.RWMutex
	byID      map[string]*chatmodel.Conversation
	members   map[string]map[string]chatmodel.Member // convID -> userID -> member
	userConvs map[string]map[string]struct{}         // userID -> set convID
	pairs     map[string]string                      // "a:b" (a<b) -> convID
}

func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{
		byID:      make(map[string]*chatmodel.Conversation),
		members:   make(map[string]map[string]chatmodel.Member),
		userConvs: make(map[string]map[string]struct{}),
		pairs:     make(map[string]string),
	}
}

func pairID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (s *MemoryConversations) Create(_ context.Context, c *chatmodel.Conversation, members []chatmodel.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.byID[c.ConversationID] = &cp
	s.members[c.ConversationID] = make(map[string]chatmodel.Member, len(members))
	for _, m := range members {
		s.members[c.ConversationID][m.UserID] = m
		if s.userConvs[m.UserID] == nil {
			s.userConvs[m.UserID] = make(map[string]struct{})
		}
		s.userConvs[m.UserID][c.ConversationID] = struct{}{}
	}
	if c.Kind == chatmodel.ConversationPrivate && len(members) == 2 {
		s.pairs[pairID(members[0].UserID, members[1].UserID)] = c.ConversationID
	}
	return nil
}

func (s *MemoryConversations) Get(_ context.Context, id string) (*chatmodel.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryConversations) MembersOf(_ context.Context, conversationID string) ([]chatmodel.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.members[conversationID]
	out := make([]chatmodel.Member, 0, len(rows))
	for _, m := range rows {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryConversations) ConversationsOf(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.userConvs[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

func (s *MemoryConversations) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[conversationID][userID]
	return ok, nil
}

func (s *MemoryConversations) FindPrivate(_ context.Context, userA, userB string) (*chatmodel.Conversation, error) {
	s.mu.RLock()
	id, ok := s.pairs[pairID(userA, userB)]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("private conversation")
	}
	return s.Get(context.Background(), id)
}

func (s *MemoryConversations) Touch(_ context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[conversationID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("conversation", "id", conversationID)
	}
	c.LastActivityAt = at
	return nil
}

// ----- messages -----

type MemoryMessages struct {
	mu     sync.RWMutex
	byID   map[string]*chatmodel.Message
	byConv map[string][]string                       // convID -> message ids, append order
	status map[string]map[string]chatmodel.MessageStatus // msgID -> userID -> status
}

func NewMemoryMessages() *MemoryMessages {
	return &MemoryMessages{
		byID:   make(map[string]*chatmodel.Message),
		byConv: make(map[string][]string),
		status: make(map[string]map[string]chatmodel.MessageStatus),
	}
}

func (s *MemoryMessages) Append(_ context.Context, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.byID[m.MessageID] = &cp
	s.byConv[m.ConversationID] = append(s.byConv[m.ConversationID], m.MessageID)
	return nil
}

func (s *MemoryMessages) Get(_ context.Context, messageID string) (*chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[messageID]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryMessages) Page(_ context.Context, conversationID string, limit int, beforeSeq int64) ([]*chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	selected := selectPage(s.byConv[conversationID], limit, beforeSeq)
	out := make([]*chatmodel.Message, 0, len(selected))
	for _, id := range selected {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryMessages) Update(_ context.Context, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.MessageID]; !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", m.MessageID)
	}
	cp := *m
	s.byID[m.MessageID] = &cp
	return nil
}

func (s *MemoryMessages) SetStatus(_ context.Context, st *chatmodel.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[st.MessageID] == nil {
		s.status[st.MessageID] = make(map[string]chatmodel.MessageStatus)
	}
	s.status[st.MessageID][st.UserID] = *st
	return nil
}

func (s *MemoryMessages) StatusOf(_ context.Context, messageID string) ([]chatmodel.MessageStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.status[messageID]
	out := make([]chatmodel.MessageStatus, 0, len(rows))
	for _, st := range rows {
		out = append(out, st)
	}
	return out, nil
}
