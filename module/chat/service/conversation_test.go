package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"PChat/module/chat/model"
	usermodel "PChat/module/user/model"
	"PChat/service/storage"
	errs "PChat/tools/errs"
)

func newService(t *testing.T, userIDs ...string) (*Service, storage.Stores) {
	t.Helper()
	st := storage.NewMemoryStores()
	ctx := context.Background()
	for _, id := range userIDs {
		err := st.Users.Create(ctx, &usermodel.User{
			UserID: id, Phone: "+99890" + id, FirstName: id, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return New(st.Convs, st.Users), st
}

func TestOpenPrivateDeduplicates(t *testing.T) {
	svc, _ := newService(t, "alice", "bob")
	ctx := context.Background()

	first, err := svc.OpenPrivate(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenPrivate: %v", err)
	}
	if first.Kind != model.ConversationPrivate {
		t.Fatalf("kind = %q", first.Kind)
	}

	// Second open, either direction, returns the same conversation.
	again, err := svc.OpenPrivate(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenPrivate again: %v", err)
	}
	reversed, err := svc.OpenPrivate(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("OpenPrivate reversed: %v", err)
	}
	if again.ConversationID != first.ConversationID || reversed.ConversationID != first.ConversationID {
		t.Fatalf("dedupe failed: %s, %s, %s", first.ConversationID, again.ConversationID, reversed.ConversationID)
	}
}

func TestOpenPrivateRejectsSelfAndUnknown(t *testing.T) {
	svc, _ := newService(t, "alice")
	ctx := context.Background()

	if _, err := svc.OpenPrivate(ctx, "alice", "alice"); !errs.ErrInvalidUser.Is(err) {
		t.Fatalf("self err = %v", err)
	}
	if _, err := svc.OpenPrivate(ctx, "alice", "ghost"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("unknown peer err = %v", err)
	}
}

func TestCreateGroup(t *testing.T) {
	svc, st := newService(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := svc.CreateGroup(ctx, "alice", "  team  ", []string{"bob", "carol", "bob", "alice"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if conv.Name != "team" {
		t.Fatalf("name = %q", conv.Name)
	}

	members, err := st.Convs.MembersOf(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3 with duplicates dropped", len(members))
	}
	roles := make(map[string]string)
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	if roles["alice"] != model.RoleAdmin {
		t.Fatalf("creator role = %q, want admin", roles["alice"])
	}
	if roles["bob"] != model.RoleMember || roles["carol"] != model.RoleMember {
		t.Fatalf("roles = %v", roles)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	svc, _ := newService(t, "alice", "bob")
	ctx := context.Background()

	if _, err := svc.CreateGroup(ctx, "alice", "   ", []string{"bob"}); !errs.ErrInvalidName.Is(err) {
		t.Fatalf("empty name err = %v", err)
	}
	if _, err := svc.CreateGroup(ctx, "alice", "team", []string{"ghost"}); !errs.ErrInvalidUser.Is(err) {
		t.Fatalf("unknown member err = %v", err)
	}
	if _, err := svc.CreateGroup(ctx, "alice", "team", nil); !errs.ErrInvalidUser.Is(err) {
		t.Fatalf("creator-only group err = %v", err)
	}
}

func TestCreateGroupMemberCap(t *testing.T) {
	ids := make([]string, 0, model.MaxGroupMembers)
	for i := 0; i < model.MaxGroupMembers; i++ {
		ids = append(ids, "u"+strconv.Itoa(i))
	}
	svc, _ := newService(t, ids...)
	ctx := context.Background()

	// Creator plus MaxGroupMembers-1 others is exactly at the cap.
	atCap, err := svc.CreateGroup(ctx, "u0", "big", ids[1:model.MaxGroupMembers])
	if err != nil {
		t.Fatalf("at-cap group err = %v", err)
	}
	members, err := svc.convs.MembersOf(ctx, atCap.ConversationID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != model.MaxGroupMembers {
		t.Fatalf("got %d members, want %d", len(members), model.MaxGroupMembers)
	}

	// One more would exceed it.
	over := append([]string(nil), ids[1:]...)
	svcOver, _ := newService(t, append(ids, "extra")...)
	_, err = svcOver.CreateGroup(ctx, "u0", "too big", append(over, "extra"))
	if !errs.ErrTooManyMembers.Is(err) {
		t.Fatalf("over-cap err = %v", err)
	}
}

func TestListSortsByActivity(t *testing.T) {
	svc, st := newService(t, "alice", "bob", "carol")
	ctx := context.Background()

	c1, err := svc.OpenPrivate(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenPrivate: %v", err)
	}
	c2, err := svc.OpenPrivate(ctx, "alice", "carol")
	if err != nil {
		t.Fatalf("OpenPrivate: %v", err)
	}

	// Activity on the older conversation moves it to the front.
	if err := st.Convs.Touch(ctx, c1.ConversationID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("touch: %v", err)
	}

	views, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d conversations, want 2", len(views))
	}
	if views[0].Conversation.ConversationID != c1.ConversationID {
		t.Fatalf("first = %s, want most recently active %s", views[0].Conversation.ConversationID, c1.ConversationID)
	}
	if views[1].Conversation.ConversationID != c2.ConversationID {
		t.Fatalf("second = %s, want %s", views[1].Conversation.ConversationID, c2.ConversationID)
	}
}

func TestGetRequiresMembership(t *testing.T) {
	svc, _ := newService(t, "alice", "bob", "carol")
	ctx := context.Background()

	conv, err := svc.OpenPrivate(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenPrivate: %v", err)
	}

	if _, err := svc.Get(ctx, conv.ConversationID, "carol"); !errs.ErrNotAMember.Is(err) {
		t.Fatalf("outsider err = %v, want not a member", err)
	}
	if _, err := svc.Get(ctx, "no-such-conversation", "alice"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("missing conversation err = %v, want not found", err)
	}

	view, err := svc.Get(ctx, conv.ConversationID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(view.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(view.Members))
	}
}
