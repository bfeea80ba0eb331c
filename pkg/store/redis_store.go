package store

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client this package depends on,
// narrowed the way choveylee-tlimiter's redis_store.go declares its own
// Client interface, so a fake can stand in for unit tests.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ZRangeByScoreWithScores(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.ZSliceCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	ScriptLoad(ctx context.Context, script string) *redis.StringCmd
	EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStore implements Store over go-redis. Scripts registered via Register
// are loaded once with SCRIPT LOAD; EvalScript re-registers and retries
// exactly once on a NOSCRIPT error, mirroring choveylee-tlimiter's
// evalSHA/isLuaScriptGone pattern generalized from one script to many.
type RedisStore struct {
	client RedisClient

	mu      sync.RWMutex
	scripts map[ScriptID]string // source, for reload
	shas    map[ScriptID]string
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{
		client:  client,
		scripts: make(map[ScriptID]string),
		shas:    make(map[ScriptID]string),
	}
}

func (s *RedisStore) Register(ctx context.Context, id ScriptID, source string) error {
	sha, err := s.client.ScriptLoad(ctx, source).Result()
	if err != nil {
		return Wrap("script_load", err)
	}
	s.mu.Lock()
	s.scripts[id] = source
	s.shas[id] = sha
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) sha(id ScriptID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sha, ok := s.shas[id]
	return sha, ok
}

func (s *RedisStore) reload(ctx context.Context, id ScriptID) (string, error) {
	s.mu.RLock()
	source, ok := s.scripts[id]
	s.mu.RUnlock()
	if !ok {
		return "", errors.Errorf("script %q was never registered", id)
	}
	sha, err := s.client.ScriptLoad(ctx, source).Result()
	if err != nil {
		return "", Wrap("script_load", err)
	}
	s.mu.Lock()
	s.shas[id] = sha
	s.mu.Unlock()
	return sha, nil
}

// EvalScript runs the registered script, transparently reloading it once if
// Redis reports the script is no longer cached (spec.md section 4.1).
func (s *RedisStore) EvalScript(ctx context.Context, id ScriptID, keys []string, args ...interface{}) (interface{}, error) {
	sha, ok := s.sha(id)
	if !ok {
		var err error
		sha, err = s.reload(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.client.EvalSha(ctx, sha, keys, args...).Result()
	if err == nil {
		return result, nil
	}
	if !isNoScript(err) {
		return nil, Wrap("eval_script", err)
	}

	sha, reloadErr := s.reload(ctx, id)
	if reloadErr != nil {
		return nil, reloadErr
	}
	result, err = s.client.EvalSha(ctx, sha, keys, args...).Result()
	if err != nil {
		return nil, Wrap("eval_script", err)
	}
	return result, nil
}

func isNoScript(err error) bool {
	return strings.HasPrefix(err.Error(), "NOSCRIPT")
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", Wrap("get", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return Wrap("set", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return Wrap("delete", err)
	}
	return nil
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]ZEntry, error) {
	raw, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, Wrap("zrange_by_score", err)
	}
	entries := make([]ZEntry, 0, len(raw))
	for _, z := range raw {
		member, _ := z.Member.(string)
		entries = append(entries, ZEntry{Member: member, Score: z.Score})
	}
	return entries, nil
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return Wrap("zadd", err)
	}
	return nil
}

func (s *RedisStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	if err := s.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err(); err != nil {
		return Wrap("zremrangebyscore", err)
	}
	return nil
}

func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, Wrap("zcard", err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return Wrap("expire", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return Wrap("ping", err)
	}
	return nil
}

func formatScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
