package chat

import (
	"context"
	"time"

	"PChat/logger"
	usermodel "PChat/module/user/model"
	"PChat/service/storage"
)

// Broadcaster pushes status_changed events to a user's contacts when the
// user's live-connection count crosses zero in either direction. Contacts
// are everyone sharing at least one conversation; the push goes straight
// to each contact's client, bypassing rooms, because presence is
// account-wide rather than conversation-scoped.
//
// The contact set is computed by scanning the user's conversations at
// transition time: O(conversations x members). Fine at <=200-member
// groups; a precomputed reverse index is the known follow-up if group
// sizes ever grow.
type Broadcaster struct {
	reg   *Registry
	convs storage.ConversationStore
	users storage.UserStore
}

func NewBroadcaster(reg *Registry, convs storage.ConversationStore, users storage.UserStore) *Broadcaster {
	return &Broadcaster{reg: reg, convs: convs, users: users}
}

func (b *Broadcaster) UserOnline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.users.SetStatus(ctx, userID, usermodel.StatusOnline, nil); err != nil {
		logger.Warnf("[presence] set online user=%s err=%v", userID, err)
	}
	b.push(ctx, userID, StatusPayload{UserID: userID, Status: usermodel.StatusOnline})
}

func (b *Broadcaster) UserOffline(userID string, lastSeen time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.users.SetStatus(ctx, userID, usermodel.StatusOffline, &lastSeen); err != nil {
		logger.Warnf("[presence] set offline user=%s err=%v", userID, err)
	}
	b.push(ctx, userID, StatusPayload{UserID: userID, Status: usermodel.StatusOffline, LastSeen: &lastSeen})
}

func (b *Broadcaster) push(ctx context.Context, userID string, payload StatusPayload) {
	contacts, err := b.Contacts(ctx, userID)
	if err != nil {
		logger.Warnf("[presence] contacts user=%s err=%v", userID, err)
		return
	}
	frame := EncodeEvent(EventStatusChanged, payload)
	for _, contact := range contacts {
		c := b.reg.Lookup(contact)
		if c == nil {
			continue
		}
		if !c.Enqueue(frame) {
			// best-effort: contact just closed or is drowning, move on
			logger.Debug("[presence] drop status push, contact unreachable")
		}
	}
}

// Contacts returns the distinct users sharing at least one conversation
// with userID, excluding userID itself.
func (b *Broadcaster) Contacts(ctx context.Context, userID string) ([]string, error) {
	convIDs, err := b.convs.ConversationsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, convID := range convIDs {
		members, err := b.convs.MembersOf(ctx, convID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.UserID != userID {
				seen[m.UserID] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}
