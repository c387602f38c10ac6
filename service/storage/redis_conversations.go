package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	chatmodel "PChat/module/chat/model"
	redisc "PChat/service/storage/redis"
	errs "PChat/tools/errs"
)

// Key layout:
//   im:conv:<id>           conversation JSON
//   im:conv:members:<id>   hash userID -> member JSON
//   im:user:convs:<uid>    set of conversation ids
//   im:private:<a>:<b>     private pair -> conversation id (a < b)

func convKey(id string) string       { return "im:conv:" + id }
func membersKey(id string) string    { return "im:conv:members:" + id }
func userConvsKey(uid string) string { return "im:user:convs:" + uid }

func privatePairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "im:private:" + a + ":" + b
}

type RedisConversations struct{}

func NewRedisConversations() *RedisConversations { return &RedisConversations{} }

func (s *RedisConversations) Create(ctx context.Context, c *chatmodel.Conversation, members []chatmodel.Member) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal conversation")
	}
	rdb := redisc.Client()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, convKey(c.ConversationID), raw, 0)
	for _, m := range members {
		mraw, err := json.Marshal(m)
		if err != nil {
			return errors.Wrap(err, "marshal member")
		}
		pipe.HSet(ctx, membersKey(c.ConversationID), m.UserID, mraw)
		pipe.SAdd(ctx, userConvsKey(m.UserID), c.ConversationID)
	}
	if c.Kind == chatmodel.ConversationPrivate && len(members) == 2 {
		pipe.Set(ctx, privatePairKey(members[0].UserID, members[1].UserID), c.ConversationID, 0)
	}
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "create conversation")
}

func (s *RedisConversations) Get(ctx context.Context, id string) (*chatmodel.Conversation, error) {
	raw, err := redisc.Client().Get(ctx, convKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation")
	}
	var c chatmodel.Conversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal conversation")
	}
	return &c, nil
}

func (s *RedisConversations) MembersOf(ctx context.Context, conversationID string) ([]chatmodel.Member, error) {
	rows, err := redisc.Client().HGetAll(ctx, membersKey(conversationID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "members of conversation")
	}
	out := make([]chatmodel.Member, 0, len(rows))
	for _, raw := range rows {
		var m chatmodel.Member
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, errors.Wrap(err, "unmarshal member")
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisConversations) ConversationsOf(ctx context.Context, userID string) ([]string, error) {
	ids, err := redisc.Client().SMembers(ctx, userConvsKey(userID)).Result()
	return ids, errors.Wrap(err, "conversations of user")
}

func (s *RedisConversations) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := redisc.Client().HExists(ctx, membersKey(conversationID), userID).Result()
	return ok, errors.Wrap(err, "membership check")
}

func (s *RedisConversations) FindPrivate(ctx context.Context, userA, userB string) (*chatmodel.Conversation, error) {
	id, err := redisc.Client().Get(ctx, privatePairKey(userA, userB)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("private conversation")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find private conversation")
	}
	return s.Get(ctx, id)
}

func (s *RedisConversations) Touch(ctx context.Context, conversationID string, at time.Time) error {
	c, err := s.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	c.LastActivityAt = at
	raw, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal conversation")
	}
	return errors.Wrap(redisc.Client().Set(ctx, convKey(conversationID), raw, 0).Err(), "touch conversation")
}
