package handlers

import (
	"context"
	"time"

	"PChat/service/chat"
	"PChat/tools/decode"
	errs "PChat/tools/errs"
)

// MarkRead records a read receipt and lets the log announce it to the
// room.
type MarkRead struct{}

func (MarkRead) Type() string { return chat.FrameMarkRead }

func (MarkRead) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	p, err := decode.DecodeStruct[chat.MarkReadPayload](f.Payload)
	if err != nil {
		return errs.WrapMsg(err, "decode mark_read")
	}
	if p.MessageID == "" || p.ConversationID == "" {
		return errs.ErrNotFound.WrapMsg("missing message_id or conversation_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hctx.S.RequireMember(ctx, p.ConversationID, c.UserID); err != nil {
		return err
	}
	return hctx.S.Log().MarkRead(ctx, p.ConversationID, p.MessageID, c.UserID)
}
