package otp

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps codes under "<prefix>:<userID>" with a Redis expiry,
// so every API instance sees the same pending code.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(userID uint64) string {
	return s.prefix + ":" + strconv.FormatUint(userID, 10)
}

func (s *RedisStore) Put(ctx context.Context, userID uint64, code string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(userID), code, ttl).Err()
}

// Take uses GETDEL so two concurrent verifications cannot both succeed.
func (s *RedisStore) Take(ctx context.Context, userID uint64) (string, bool, error) {
	code, err := s.rdb.GetDel(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}
