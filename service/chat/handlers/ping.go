package handlers

import (
	"PChat/service/chat"
)

// Ping answers application-level keepalives with a pong frame.
type Ping struct{}

func (Ping) Type() string { return chat.FramePing }

func (Ping) Handle(hctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	c.Enqueue(chat.EncodeEvent(chat.EventPong, nil))
	return nil
}
