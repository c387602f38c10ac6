package chat

import (
	"encoding/json"
	"time"

	"PChat/logger"
	errs "PChat/tools/errs"
)

// Inbound frame types.
const (
	FrameOpenConversation  = "open_conversation"
	FrameCloseConversation = "close_conversation"
	FrameSendMessage       = "send_message"
	FrameTypingStart       = "typing_start"
	FrameTypingStop        = "typing_stop"
	FrameMarkRead          = "mark_read"
	FramePing              = "ping"
)

// Outbound event types emitted from this package. message_created and
// message_read are owned by the message log and declared there.
const (
	EventTypingChanged = "typing_changed"
	EventStatusChanged = "status_changed"
	EventError         = "error"
	EventPong          = "pong"
)

// Frame is the wire envelope, both directions: {"type": ..., "payload": {...}}.
type Frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Type == "" {
		return nil, errs.ErrInternal.WrapMsg("frame without type")
	}
	return &f, nil
}

type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// EncodeEvent marshals an outbound event. Payload structs are plain data,
// a marshal failure is a programming error; it is logged and swallowed so
// one bad event cannot take a connection down.
func EncodeEvent(eventType string, payload any) []byte {
	data, err := json.Marshal(event{Type: eventType, Payload: payload})
	if err != nil {
		logger.Errorf("[frames] marshal event type=%s err=%v", eventType, err)
		return nil
	}
	return data
}

// EncodeError turns err into an error frame for one client. Coded errors
// keep their code and message; anything else degrades to the generic
// internal error so store failures never leak details to the peer.
func EncodeError(err error) []byte {
	if ce, ok := errs.AsCodeError(err); ok {
		return EncodeEvent(EventError, ErrorPayload{Code: ce.Code, Msg: ce.Msg})
	}
	return EncodeEvent(EventError, ErrorPayload{Code: errs.ErrInternal.Code, Msg: errs.ErrInternal.Msg})
}

// Inbound payloads, decoded via tools/decode.

type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	ReplyToID      string `json:"reply_to_id"`
}

type MarkReadPayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// Outbound payloads.

type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	FirstName      string `json:"first_name,omitempty"`
	Typing         bool   `json:"typing"`
}

type StatusPayload struct {
	UserID   string     `json:"user_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
