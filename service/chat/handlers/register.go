package handlers

import (
	"PChat/service/chat"
)

// RegisterAll wires every frame handler into the dispatcher. Called once
// from main before the server accepts connections.
func RegisterAll(d *chat.Dispatcher) {
	d.Register(OpenConversation{})
	d.Register(CloseConversation{})
	d.Register(SendMessage{})
	d.Register(TypingStart{})
	d.Register(TypingStop{})
	d.Register(MarkRead{})
	d.Register(Ping{})
}
