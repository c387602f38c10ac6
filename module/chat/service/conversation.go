package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"PChat/module/chat/model"
	"PChat/service/storage"
	errs "PChat/tools/errs"
)

// Service owns conversation lifecycle: private-chat dedupe, group
// creation with the member cap, listings.
type Service struct {
	convs storage.ConversationStore
	users storage.UserStore
	now   func() time.Time
}

func New(convs storage.ConversationStore, users storage.UserStore) *Service {
	return &Service{convs: convs, users: users, now: time.Now}
}

// OpenPrivate returns the private conversation between the two users,
// creating it on first contact. At most one private conversation exists
// per unordered pair; a conversation with yourself is rejected.
func (s *Service) OpenPrivate(ctx context.Context, userID, peerID string) (*model.Conversation, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" || peerID == userID {
		return nil, errs.ErrInvalidUser.WrapMsg("bad peer", "peer", peerID)
	}
	if _, err := s.users.GetByID(ctx, peerID); err != nil {
		return nil, err
	}

	if conv, err := s.convs.FindPrivate(ctx, userID, peerID); err == nil {
		return conv, nil
	} else if !errs.ErrNotFound.Is(err) {
		return nil, err
	}

	now := s.now()
	conv := &model.Conversation{
		ConversationID: uuid.NewString(),
		Kind:           model.ConversationPrivate,
		CreatedBy:      userID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	members := []model.Member{
		{ConversationID: conv.ConversationID, UserID: userID, Role: model.RoleMember, JoinedAt: now},
		{ConversationID: conv.ConversationID, UserID: peerID, Role: model.RoleMember, JoinedAt: now},
	}
	if err := s.convs.Create(ctx, conv, members); err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateGroup creates a named group with the creator as admin. The
// roster, creator included, may not exceed the group cap; duplicate and
// unknown member ids are rejected.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*model.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrInvalidName.WrapMsg("group name required")
	}

	seen := map[string]struct{}{creatorID: {}}
	roster := []string{creatorID}
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if _, err := s.users.GetByID(ctx, id); err != nil {
			return nil, errs.ErrInvalidUser.WrapMsg("unknown member", "user", id)
		}
		seen[id] = struct{}{}
		roster = append(roster, id)
	}
	if len(roster) < 2 {
		return nil, errs.ErrInvalidUser.WrapMsg("at least one member besides the creator")
	}
	if len(roster) > model.MaxGroupMembers {
		return nil, errs.ErrTooManyMembers.WrapMsg("", "count", len(roster), "max", model.MaxGroupMembers)
	}

	now := s.now()
	conv := &model.Conversation{
		ConversationID: uuid.NewString(),
		Kind:           model.ConversationGroup,
		Name:           name,
		CreatedBy:      creatorID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	members := make([]model.Member, 0, len(roster))
	for _, id := range roster {
		role := model.RoleMember
		if id == creatorID {
			role = model.RoleAdmin
		}
		members = append(members, model.Member{
			ConversationID: conv.ConversationID,
			UserID:         id,
			Role:           role,
			JoinedAt:       now,
		})
	}
	if err := s.convs.Create(ctx, conv, members); err != nil {
		return nil, err
	}
	return conv, nil
}

// ConversationView is a listing row: the conversation plus its roster.
type ConversationView struct {
	Conversation *model.Conversation `json:"conversation"`
	Members      []model.Member      `json:"members"`
}

// List returns the user's conversations with rosters, most recently
// active first.
func (s *Service) List(ctx context.Context, userID string) ([]ConversationView, error) {
	ids, err := s.convs.ConversationsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(ids))
	for _, id := range ids {
		conv, err := s.convs.Get(ctx, id)
		if err != nil {
			if errs.ErrNotFound.Is(err) {
				continue
			}
			return nil, err
		}
		members, err := s.convs.MembersOf(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ConversationView{Conversation: conv, Members: members})
	}
	sortByActivity(out)
	return out, nil
}

// Get returns one conversation with its roster, members only.
func (s *Service) Get(ctx context.Context, conversationID, userID string) (*ConversationView, error) {
	ok, err := s.convs.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.convs.Get(ctx, conversationID); err != nil {
			return nil, err
		}
		return nil, errs.ErrNotAMember.Wrap()
	}
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	members, err := s.convs.MembersOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &ConversationView{Conversation: conv, Members: members}, nil
}

func sortByActivity(views []ConversationView) {
	sort.Slice(views, func(i, j int) bool {
		return views[i].Conversation.LastActivityAt.After(views[j].Conversation.LastActivityAt)
	})
}
