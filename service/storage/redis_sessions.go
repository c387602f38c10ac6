package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	usermodel "PChat/module/user/model"
	redisc "PChat/service/storage/redis"
	errs "PChat/tools/errs"
)

// im:session:<token-hash>  session JSON, TTL = token lifetime

func sessionKey(hash string) string { return "im:session:" + hash }

type RedisSessions struct{}

func NewRedisSessions() *RedisSessions { return &RedisSessions{} }

func (s *RedisSessions) Create(ctx context.Context, sess *usermodel.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errs.ErrInternal.WrapMsg("session already expired")
	}
	return errors.Wrap(redisc.Client().Set(ctx, sessionKey(sess.TokenHash), raw, ttl).Err(), "create session")
}

func (s *RedisSessions) GetByTokenHash(ctx context.Context, hash string) (*usermodel.Session, error) {
	raw, err := redisc.Client().Get(ctx, sessionKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("session")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	var sess usermodel.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Wrap(err, "unmarshal session")
	}
	return &sess, nil
}

func (s *RedisSessions) Delete(ctx context.Context, hash string) error {
	return errors.Wrap(redisc.Client().Del(ctx, sessionKey(hash)).Err(), "delete session")
}

func (s *RedisSessions) Touch(ctx context.Context, hash string, at time.Time) error {
	sess, err := s.GetByTokenHash(ctx, hash)
	if err != nil {
		return err
	}
	sess.LastActivity = at
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	// KEEPTTL preserves the expiry set at creation
	return errors.Wrap(redisc.Client().SetArgs(ctx, sessionKey(hash), raw, redis.SetArgs{KeepTTL: true}).Err(), "touch session")
}
