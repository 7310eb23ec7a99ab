package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Both hashes are updated inside one script so the forward and reverse
// indexes never disagree.
var setOnlineScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[1])
if old then
	redis.call('HDEL', KEYS[2], old)
end
local prev = redis.call('HGET', KEYS[2], ARGV[2])
if prev and prev ~= ARGV[1] and redis.call('HGET', KEYS[1], prev) == ARGV[2] then
	redis.call('HDEL', KEYS[1], prev)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

var removeScript = redis.NewScript(`
local user = redis.call('HGET', KEYS[2], ARGV[1])
if not user then
	return false
end
redis.call('HDEL', KEYS[2], ARGV[1])
if redis.call('HGET', KEYS[1], user) == ARGV[1] then
	redis.call('HDEL', KEYS[1], user)
end
return user
`)

// RedisStore keeps presence in two Redis hashes:
//   - <prefix>:users  userID -> connID
//   - <prefix>:conns  connID -> userID
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis backed presence store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "presence"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) usersKey() string { return fmt.Sprintf("%s:users", s.prefix) }
func (s *RedisStore) connsKey() string { return fmt.Sprintf("%s:conns", s.prefix) }

func (s *RedisStore) SetOnline(ctx context.Context, userID, connID string) error {
	keys := []string{s.usersKey(), s.connsKey()}
	if err := setOnlineScript.Run(ctx, s.client, keys, userID, connID).Err(); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveByConnection(ctx context.Context, connID string) (string, bool, error) {
	keys := []string{s.usersKey(), s.connsKey()}
	userID, err := removeScript.Run(ctx, s.client, keys, connID).Text()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("presence remove: %w", err)
	}
	return userID, true, nil
}

func (s *RedisStore) Lookup(ctx context.Context, userID string) (string, bool, error) {
	connID, err := s.client.HGet(ctx, s.usersKey(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("presence lookup: %w", err)
	}
	return connID, true, nil
}

func (s *RedisStore) OnlineUsers(ctx context.Context) ([]string, error) {
	ids, err := s.client.HKeys(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
