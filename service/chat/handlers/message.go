package handlers

import (
	"context"
	"time"

	"PChat/service/chat"
	"PChat/tools/decode"
	errs "PChat/tools/errs"
)

// SendMessage appends to the conversation log. The append itself fans the
// message out to every open subscriber, including the sender, so the
// sender's own echo carries the authoritative id and timestamp.
type SendMessage struct{}

func (SendMessage) Type() string { return chat.FrameSendMessage }

func (SendMessage) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	p, err := decode.DecodeStruct[chat.SendMessagePayload](f.Payload)
	if err != nil {
		return errs.WrapMsg(err, "decode send_message")
	}
	if p.ConversationID == "" {
		return errs.ErrNotFound.WrapMsg("missing conversation_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hctx.S.RequireMember(ctx, p.ConversationID, c.UserID); err != nil {
		return err
	}
	_, err = hctx.S.Log().Append(ctx, p.ConversationID, c.UserID, p.Content, p.Type, p.ReplyToID)
	return err
}
