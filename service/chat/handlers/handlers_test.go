package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PChat/config"
	chatmodel "PChat/module/chat/model"
	usermodel "PChat/module/user/model"
	"PChat/service/chat"
	"PChat/service/storage"
	errs "PChat/tools/errs"
)

func testServer(t *testing.T) (*chat.Server, storage.Stores) {
	t.Helper()
	st := storage.NewMemoryStores()
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"alice", "bob", "carol"} {
		err := st.Users.Create(ctx, &usermodel.User{
			UserID: id, Phone: "+99890" + id, FirstName: id, CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	err := st.Convs.Create(ctx, &chatmodel.Conversation{
		ConversationID: "conv1",
		Kind:           chatmodel.ConversationPrivate,
		CreatedBy:      "alice",
		CreatedAt:      now,
		LastActivityAt: now,
	}, []chatmodel.Member{
		{ConversationID: "conv1", UserID: "alice", Role: chatmodel.RoleMember, JoinedAt: now},
		{ConversationID: "conv1", UserID: "bob", Role: chatmodel.RoleMember, JoinedAt: now},
	})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	cfg := config.Config{SendQueueSize: 64}
	s := chat.NewServer(cfg, st)
	RegisterAll(s.Dispatcher())
	return s, st
}

func dispatch(t *testing.T, s *chat.Server, c *chat.Client, frameType string, payload map[string]any) error {
	t.Helper()
	return s.Dispatcher().Dispatch(&chat.Context{S: s}, &chat.Frame{Type: frameType, Payload: payload}, c)
}

func drain(c *chat.Client) []map[string]any {
	var out []map[string]any
	for {
		select {
		case raw := <-c.Send:
			var env map[string]any
			if json.Unmarshal(raw, &env) == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestOpenConversationRequiresMembership(t *testing.T) {
	s, _ := testServer(t)

	carol := chat.NewClient("c-carol", "carol", nil, 64)
	err := dispatch(t, s, carol, chat.FrameOpenConversation, map[string]any{"conversation_id": "conv1"})
	if !errs.ErrNotAMember.Is(err) {
		t.Fatalf("err = %v, want not a member", err)
	}
	if s.Rooms().Subscribed("conv1", carol) {
		t.Fatal("outsider subscribed anyway")
	}

	err = dispatch(t, s, carol, chat.FrameOpenConversation, map[string]any{"conversation_id": "ghost"})
	if !errs.ErrNotFound.Is(err) {
		t.Fatalf("missing conversation err = %v", err)
	}
}

func TestSendMessageFlow(t *testing.T) {
	s, _ := testServer(t)

	alice := chat.NewClient("c-alice", "alice", nil, 64)
	bob := chat.NewClient("c-bob", "bob", nil, 64)
	for _, c := range []*chat.Client{alice, bob} {
		if err := dispatch(t, s, c, chat.FrameOpenConversation, map[string]any{"conversation_id": "conv1"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}

	err := dispatch(t, s, alice, chat.FrameSendMessage, map[string]any{
		"conversation_id": "conv1",
		"content":         "hello bob",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Both members get the event; the sender's copy carries the id.
	for name, c := range map[string]*chat.Client{"alice": alice, "bob": bob} {
		got := drain(c)
		if len(got) != 1 {
			t.Fatalf("%s got %d events, want 1", name, len(got))
		}
		if got[0]["type"] != "message_created" {
			t.Fatalf("%s got %v", name, got[0])
		}
		payload := got[0]["payload"].(map[string]any)
		if payload["content"] != "hello bob" {
			t.Fatalf("%s payload = %v", name, payload)
		}
		if payload["message_id"] == "" || payload["message_id"] == nil {
			t.Fatalf("%s payload missing id", name)
		}
	}
}

func TestSendMessageRejectsOutsiderAndEmpty(t *testing.T) {
	s, _ := testServer(t)

	carol := chat.NewClient("c-carol", "carol", nil, 64)
	err := dispatch(t, s, carol, chat.FrameSendMessage, map[string]any{
		"conversation_id": "conv1", "content": "let me in",
	})
	if !errs.ErrNotAMember.Is(err) {
		t.Fatalf("outsider err = %v", err)
	}

	alice := chat.NewClient("c-alice", "alice", nil, 64)
	err = dispatch(t, s, alice, chat.FrameSendMessage, map[string]any{
		"conversation_id": "conv1", "content": "   ",
	})
	if !errs.ErrEmptyContent.Is(err) {
		t.Fatalf("empty content err = %v", err)
	}
}

func TestTypingSkipsSender(t *testing.T) {
	s, _ := testServer(t)

	alice := chat.NewClient("c-alice", "alice", nil, 64)
	bob := chat.NewClient("c-bob", "bob", nil, 64)
	for _, c := range []*chat.Client{alice, bob} {
		if err := dispatch(t, s, c, chat.FrameOpenConversation, map[string]any{"conversation_id": "conv1"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}

	if err := dispatch(t, s, alice, chat.FrameTypingStart, map[string]any{"conversation_id": "conv1"}); err != nil {
		t.Fatalf("typing_start: %v", err)
	}
	if got := drain(alice); len(got) != 0 {
		t.Fatalf("sender got own typing event: %v", got)
	}
	got := drain(bob)
	if len(got) != 1 || got[0]["type"] != chat.EventTypingChanged {
		t.Fatalf("bob got %v", got)
	}
	payload := got[0]["payload"].(map[string]any)
	if payload["typing"] != true || payload["user_id"] != "alice" {
		t.Fatalf("payload = %v", payload)
	}
	if payload["first_name"] != "alice" {
		t.Fatalf("first_name = %v", payload["first_name"])
	}

	if err := dispatch(t, s, alice, chat.FrameTypingStop, map[string]any{"conversation_id": "conv1"}); err != nil {
		t.Fatalf("typing_stop: %v", err)
	}
	got = drain(bob)
	if len(got) != 1 {
		t.Fatalf("bob got %v", got)
	}
	if got[0]["payload"].(map[string]any)["typing"] != false {
		t.Fatalf("stop payload = %v", got[0])
	}
}

func TestMarkReadNotifiesRoom(t *testing.T) {
	s, _ := testServer(t)

	alice := chat.NewClient("c-alice", "alice", nil, 64)
	bob := chat.NewClient("c-bob", "bob", nil, 64)
	for _, c := range []*chat.Client{alice, bob} {
		if err := dispatch(t, s, c, chat.FrameOpenConversation, map[string]any{"conversation_id": "conv1"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}

	if err := dispatch(t, s, alice, chat.FrameSendMessage, map[string]any{
		"conversation_id": "conv1", "content": "read me",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	created := drain(bob)
	msgID := created[0]["payload"].(map[string]any)["message_id"].(string)
	drain(alice)

	if err := dispatch(t, s, bob, chat.FrameMarkRead, map[string]any{
		"conversation_id": "conv1", "message_id": msgID,
	}); err != nil {
		t.Fatalf("mark_read: %v", err)
	}

	got := drain(alice)
	if len(got) != 1 || got[0]["type"] != "message_read" {
		t.Fatalf("alice got %v", got)
	}
	payload := got[0]["payload"].(map[string]any)
	if payload["message_id"] != msgID || payload["user_id"] != "bob" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestCloseConversationStopsDelivery(t *testing.T) {
	s, _ := testServer(t)

	alice := chat.NewClient("c-alice", "alice", nil, 64)
	bob := chat.NewClient("c-bob", "bob", nil, 64)
	for _, c := range []*chat.Client{alice, bob} {
		if err := dispatch(t, s, c, chat.FrameOpenConversation, map[string]any{"conversation_id": "conv1"}); err != nil {
			t.Fatalf("open: %v", err)
		}
	}
	if err := dispatch(t, s, bob, chat.FrameCloseConversation, map[string]any{"conversation_id": "conv1"}); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := dispatch(t, s, alice, chat.FrameSendMessage, map[string]any{
		"conversation_id": "conv1", "content": "anyone there",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := drain(bob); len(got) != 0 {
		t.Fatalf("closed subscriber got %v", got)
	}
	if got := drain(alice); len(got) != 1 {
		t.Fatalf("alice got %v", got)
	}
}

func TestPing(t *testing.T) {
	s, _ := testServer(t)
	c := chat.NewClient("c1", "alice", nil, 4)
	if err := dispatch(t, s, c, chat.FramePing, nil); err != nil {
		t.Fatalf("ping: %v", err)
	}
	got := drain(c)
	if len(got) != 1 || got[0]["type"] != chat.EventPong {
		t.Fatalf("got %v, want pong", got)
	}
}

func TestUnknownFrameType(t *testing.T) {
	s, _ := testServer(t)
	c := chat.NewClient("c1", "alice", nil, 4)
	err := dispatch(t, s, c, "no_such_frame", nil)
	if !errs.ErrNotFound.Is(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}
