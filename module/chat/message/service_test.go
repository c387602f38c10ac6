package message

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	chatmodel "PChat/module/chat/model"
	usermodel "PChat/module/user/model"
	"PChat/service/storage"
	errs "PChat/tools/errs"
)

type published struct {
	conversationID string
	event          string
	payload        any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishEvent(conversationID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{conversationID, event, payload})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func fixture(t *testing.T) (*Service, storage.Stores, *recordingPublisher) {
	t.Helper()
	st := storage.NewMemoryStores()
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"alice", "bob"} {
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
	pub := &recordingPublisher{}
	return NewService(st.Msgs, st.Convs, st.Users, pub), st, pub
}

func TestAppendPublishesCreated(t *testing.T) {
	svc, _, pub := fixture(t)

	m, err := svc.Append(context.Background(), "conv1", "alice", "hello", "", "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if m.MessageID == "" {
		t.Fatal("no message id assigned")
	}
	if m.Type != chatmodel.MessageTypeText {
		t.Fatalf("type = %q, want default text", m.Type)
	}

	events := pub.all()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.conversationID != "conv1" || ev.event != EventMessageCreated {
		t.Fatalf("event = %+v", ev)
	}
	p, ok := ev.payload.(CreatedPayload)
	if !ok {
		t.Fatalf("payload type %T", ev.payload)
	}
	if p.MessageID != m.MessageID || p.Content != "hello" {
		t.Fatalf("payload = %+v", p)
	}
	if p.Sender.UserID != "alice" || p.Sender.FirstName != "alice" {
		t.Fatalf("sender = %+v", p.Sender)
	}
}

func TestAppendEmptyContent(t *testing.T) {
	svc, st, pub := fixture(t)

	_, err := svc.Append(context.Background(), "conv1", "alice", "   ", "", "")
	if !errs.ErrEmptyContent.Is(err) {
		t.Fatalf("err = %v, want empty content", err)
	}
	if len(pub.all()) != 0 {
		t.Fatal("rejected append still published")
	}
	msgs, err := st.Msgs.Page(context.Background(), "conv1", 10, 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatal("rejected append still stored")
	}
}

func TestAppendIDsStrictlyIncrease(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 200; i++ {
		m, err := svc.Append(ctx, "conv1", "alice", "m"+strconv.Itoa(i), "", "")
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		seq := m.Seq()
		if seq <= prev {
			t.Fatalf("id %d not greater than previous %d", seq, prev)
		}
		prev = seq
	}
}

func TestPageNewestFirstWithCursor(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		m, err := svc.Append(ctx, "conv1", "alice", "m"+strconv.Itoa(i), "", "")
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		ids = append(ids, m.MessageID)
	}

	page, err := svc.Page(ctx, "conv1", 2, "")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 || page[0].MessageID != ids[4] || page[1].MessageID != ids[3] {
		t.Fatalf("first page = %v", pageIDs(page))
	}

	page, err = svc.Page(ctx, "conv1", 2, page[1].MessageID)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 || page[0].MessageID != ids[2] || page[1].MessageID != ids[1] {
		t.Fatalf("second page = %v", pageIDs(page))
	}

	page, err = svc.Page(ctx, "conv1", 2, page[1].MessageID)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 1 || page[0].MessageID != ids[0] {
		t.Fatalf("last page = %v", pageIDs(page))
	}
}

func pageIDs(msgs []*chatmodel.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.MessageID
	}
	return out
}

func TestSoftDeleteLeavesTombstone(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	first, err := svc.Append(ctx, "conv1", "alice", "secret", "", "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := svc.Append(ctx, "conv1", "bob", "after", "", ""); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := svc.SoftDelete(ctx, first.MessageID, "alice"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	page, err := svc.Page(ctx, "conv1", 10, "")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d messages, want tombstone included", len(page))
	}
	tomb := page[1]
	if tomb.MessageID != first.MessageID {
		t.Fatalf("tombstone id = %s, want %s", tomb.MessageID, first.MessageID)
	}
	if !tomb.Deleted() || tomb.Content != "" {
		t.Fatalf("tombstone = %+v, want deleted with empty content", tomb)
	}
}

func TestSoftDeleteSenderOnly(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	m, err := svc.Append(ctx, "conv1", "alice", "hello", "", "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := svc.SoftDelete(ctx, m.MessageID, "bob"); !errs.ErrForbidden.Is(err) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestMarkReadPublishesReceipt(t *testing.T) {
	svc, _, pub := fixture(t)
	ctx := context.Background()

	m, err := svc.Append(ctx, "conv1", "alice", "hello", "", "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := svc.MarkRead(ctx, "conv1", m.MessageID, "bob"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	events := pub.all()
	if len(events) != 2 {
		t.Fatalf("published %d events, want created + read", len(events))
	}
	ev := events[1]
	if ev.event != EventMessageRead {
		t.Fatalf("event = %q, want %q", ev.event, EventMessageRead)
	}
	p, ok := ev.payload.(ReadPayload)
	if !ok {
		t.Fatalf("payload type %T", ev.payload)
	}
	if p.MessageID != m.MessageID || p.UserID != "bob" {
		t.Fatalf("payload = %+v", p)
	}

	statuses, err := svc.StatusOf(ctx, m.MessageID)
	if err != nil {
		t.Fatalf("StatusOf: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != chatmodel.MsgStatusRead {
		t.Fatalf("statuses = %+v", statuses)
	}
}

func TestMarkReadWrongConversation(t *testing.T) {
	svc, st, _ := fixture(t)
	ctx := context.Background()
	now := time.Now()

	err := st.Convs.Create(ctx, &chatmodel.Conversation{
		ConversationID: "conv2",
		Kind:           chatmodel.ConversationPrivate,
		CreatedBy:      "alice",
		CreatedAt:      now,
		LastActivityAt: now,
	}, []chatmodel.Member{
		{ConversationID: "conv2", UserID: "alice", Role: chatmodel.RoleMember, JoinedAt: now},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := svc.Append(ctx, "conv1", "alice", "hello", "", "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := svc.MarkRead(ctx, "conv2", m.MessageID, "alice"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}
