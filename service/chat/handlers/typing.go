package handlers

import (
	"context"
	"time"

	"PChat/service/chat"
	"PChat/tools/decode"
	errs "PChat/tools/errs"
)

// typingChanged pushes the indicator to everyone in the room except the
// typist. Nothing is persisted; a missed indicator corrects itself on the
// next keystroke or stop.
func typingChanged(hctx *chat.Context, f *chat.Frame, c *chat.Client, typing bool) error {
	p, err := decode.DecodeStruct[chat.ConversationPayload](f.Payload)
	if err != nil {
		return errs.WrapMsg(err, "decode typing")
	}
	if p.ConversationID == "" {
		return errs.ErrNotFound.WrapMsg("missing conversation_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hctx.S.RequireMember(ctx, p.ConversationID, c.UserID); err != nil {
		return err
	}

	payload := chat.TypingPayload{
		ConversationID: p.ConversationID,
		UserID:         c.UserID,
		Typing:         typing,
	}
	if u, err := hctx.S.Users().GetByID(ctx, c.UserID); err == nil {
		payload.FirstName = u.FirstName
	}
	hctx.S.Rooms().PublishEventExcept(p.ConversationID, c.UserID, chat.EventTypingChanged, payload)
	return nil
}

type TypingStart struct{}

func (TypingStart) Type() string { return chat.FrameTypingStart }

func (TypingStart) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	return typingChanged(hctx, f, c, true)
}

type TypingStop struct{}

func (TypingStop) Type() string { return chat.FrameTypingStop }

func (TypingStop) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	return typingChanged(hctx, f, c, false)
}
