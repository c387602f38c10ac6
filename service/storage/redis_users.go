package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	usermodel "PChat/module/user/model"
	redisc "PChat/service/storage/redis"
	errs "PChat/tools/errs"
)

// Key layout:
//   im:user:<id>            user JSON
//   im:user:ident:<value>   identifier (phone/email/username) -> user id
//   im:users                set of user ids (search scans it)

func userKey(id string) string     { return "im:user:" + id }
func identKey(ident string) string { return "im:user:ident:" + strings.ToLower(ident) }
func allUsersKey() string          { return "im:users" }

type RedisUsers struct{}

func NewRedisUsers() *RedisUsers { return &RedisUsers{} }

func (s *RedisUsers) Create(ctx context.Context, u *usermodel.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	rdb := redisc.Client()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, userKey(u.UserID), raw, 0)
	pipe.SAdd(ctx, allUsersKey(), u.UserID)
	for _, ident := range identifiers(u) {
		pipe.Set(ctx, identKey(ident), u.UserID, 0)
	}
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "create user")
}

func (s *RedisUsers) GetByID(ctx context.Context, id string) (*usermodel.User, error) {
	raw, err := redisc.Client().Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("user", "id", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	var u usermodel.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "unmarshal user")
	}
	return &u, nil
}

func (s *RedisUsers) FindByIdentifier(ctx context.Context, identifier string) (*usermodel.User, error) {
	id, err := redisc.Client().Get(ctx, identKey(identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound.WrapMsg("identifier", "value", identifier)
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolve identifier")
	}
	return s.GetByID(ctx, id)
}

func (s *RedisUsers) Update(ctx context.Context, u *usermodel.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	return errors.Wrap(redisc.Client().Set(ctx, userKey(u.UserID), raw, 0).Err(), "update user")
}

func (s *RedisUsers) SetStatus(ctx context.Context, id, status string, lastSeen *time.Time) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.Status = status
	u.LastSeen = lastSeen
	return s.Update(ctx, u)
}

func (s *RedisUsers) Search(ctx context.Context, q string) ([]*usermodel.User, error) {
	ids, err := redisc.Client().SMembers(ctx, allUsersKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	needle := strings.ToLower(q)
	var out []*usermodel.User
	for _, id := range ids {
		u, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if matchesUser(u, q, needle) {
			out = append(out, u)
		}
	}
	return out, nil
}

func matchesUser(u *usermodel.User, raw, needle string) bool {
	return strings.Contains(u.Phone, raw) ||
		strings.Contains(strings.ToLower(u.FirstName), needle) ||
		strings.Contains(strings.ToLower(u.LastName), needle) ||
		strings.Contains(strings.ToLower(u.Username), needle)
}

func identifiers(u *usermodel.User) []string {
	out := []string{u.Phone}
	if u.Email != "" {
		out = append(out, u.Email)
	}
	if u.Username != "" {
		out = append(out, u.Username)
	}
	return out
}
