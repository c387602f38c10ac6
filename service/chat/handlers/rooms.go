package handlers

import (
	"context"
	"time"

	"PChat/service/chat"
	"PChat/tools/decode"
	errs "PChat/tools/errs"
)

// OpenConversation subscribes the connection to a room after a membership
// check. Joining a room is explicit per connection; a fresh connection
// receives nothing until it opens the conversations it cares about.
type OpenConversation struct{}

func (OpenConversation) Type() string { return chat.FrameOpenConversation }

func (OpenConversation) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	p, err := decode.DecodeStruct[chat.ConversationPayload](f.Payload)
	if err != nil {
		return errs.WrapMsg(err, "decode open_conversation")
	}
	if p.ConversationID == "" {
		return errs.ErrNotFound.WrapMsg("missing conversation_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hctx.S.RequireMember(ctx, p.ConversationID, c.UserID); err != nil {
		return err
	}
	hctx.S.Rooms().Subscribe(p.ConversationID, c)
	return nil
}

// CloseConversation leaves a room. No membership check: leaving a room
// you are not in is a harmless no-op.
type CloseConversation struct{}

func (CloseConversation) Type() string { return chat.FrameCloseConversation }

func (CloseConversation) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	p, err := decode.DecodeStruct[chat.ConversationPayload](f.Payload)
	if err != nil {
		return errs.WrapMsg(err, "decode close_conversation")
	}
	if p.ConversationID == "" {
		return errs.ErrNotFound.WrapMsg("missing conversation_id")
	}
	hctx.S.Rooms().Unsubscribe(p.ConversationID, c)
	return nil
}
