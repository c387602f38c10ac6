package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	chatmodel "PChat/module/chat/model"
	redisc "PChat/service/storage/redis"
	errs "PChat/tools/errs"
)

// Key layout:
//   im:conv:msgs:<convID>   list of message ids in append order
//   im:msg:<id>             message JSON
//   im:msg:status:<id>      hash userID -> status JSON

func convMsgsKey(convID string) string { return "im:conv:msgs:" + convID }
func msgKey(id string) string          { return "im:msg:" + id }
func msgStatusKey(id string) string    { return "im:msg:status:" + id }

type RedisMessages struct{}

func NewRedisMessages() *RedisMessages { return &RedisMessages{} }

func (s *RedisMessages) Append(ctx context.Context, m *chatmodel.Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	pipe := redisc.Client().TxPipeline()
	pipe.Set(ctx, msgKey(m.MessageID), raw, 0)
	pipe.RPush(ctx, convMsgsKey(m.ConversationID), m.MessageID)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "append message")
}

func (s *RedisMessages) Get(ctx context.Context, messageID string) (*chatmodel.Message, error) {
	raw, err := redisc.Client().Get(ctx, msgKey(messageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", messageID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get message")
	}
	var m chatmodel.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal message")
	}
	return &m, nil
}

// Page walks the id list from the tail. The list holds ids only, so the
// scan stays cheap; message bodies are fetched for the selected window.
func (s *RedisMessages) Page(ctx context.Context, conversationID string, limit int, beforeSeq int64) ([]*chatmodel.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := redisc.Client().LRange(ctx, convMsgsKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list message ids")
	}
	selected := selectPage(ids, limit, beforeSeq)
	out := make([]*chatmodel.Message, 0, len(selected))
	for _, id := range selected {
		m, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisMessages) Update(ctx context.Context, m *chatmodel.Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	return errors.Wrap(redisc.Client().Set(ctx, msgKey(m.MessageID), raw, 0).Err(), "update message")
}

func (s *RedisMessages) SetStatus(ctx context.Context, st *chatmodel.MessageStatus) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshal message status")
	}
	return errors.Wrap(redisc.Client().HSet(ctx, msgStatusKey(st.MessageID), st.UserID, raw).Err(), "set message status")
}

func (s *RedisMessages) StatusOf(ctx context.Context, messageID string) ([]chatmodel.MessageStatus, error) {
	rows, err := redisc.Client().HGetAll(ctx, msgStatusKey(messageID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "message status")
	}
	out := make([]chatmodel.MessageStatus, 0, len(rows))
	for _, raw := range rows {
		var st chatmodel.MessageStatus
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, errors.Wrap(err, "unmarshal message status")
		}
		out = append(out, st)
	}
	return out, nil
}
