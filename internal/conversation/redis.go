package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "history:"
	defaultTTL       = 24 * time.Hour
)

// RedisStore keeps each session's history in a capped Redis list. Idle
// sessions expire through the key TTL, which is refreshed on every access.
type RedisStore struct {
	client *redis.Client
	max    int
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, maxTurns int, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, max: normalizeMax(maxTurns), ttl: ttl}
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if err := validate(sessionID, turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	val, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, val)
	pipe.LTrim(ctx, key, int64(-s.max), -1)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)

	return err
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]Turn, error) {
	key := s.key(sessionID)

	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}

	// refresh TTL on read; a failure here only shortens the session's life
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return trim(turns, s.max), nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Sweep is a no-op: Redis expires idle sessions itself.
func (s *RedisStore) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string {
	return historyKeyPrefix + sessionID
}
