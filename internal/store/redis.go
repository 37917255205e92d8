package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
)

// RedisStore keeps each conversation as a Redis list of JSON-encoded
// records under <prefix><number>. List order is arrival order; Query
// re-sorts by timestamp before applying the limit.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(number string) string {
	return s.prefix + number
}

func (s *RedisStore) Append(ctx context.Context, number string, rec model.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.rdb.RPush(ctx, s.key(number), b).Err(); err != nil {
		return fmt.Errorf("redis append %s: %w", number, err)
	}
	return nil
}

func (s *RedisStore) Query(ctx context.Context, number string, limit int) ([]model.Record, error) {
	raw, err := s.rdb.LRange(ctx, s.key(number), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis query %s: %w", number, err)
	}

	recs, err := decodeAll(raw)
	if err != nil {
		return nil, err
	}

	sortNewestFirst(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *RedisStore) Exists(ctx context.Context, number string) (bool, error) {
	n, err := s.rdb.LLen(ctx, s.key(number)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", number, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Latest(ctx context.Context, limit int) ([]model.Record, error) {
	var all []model.Record

	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.LRange(ctx, iter.Val(), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("redis latest: %w", err)
		}
		recs, err := decodeAll(raw)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis latest scan: %w", err)
	}

	sortNewestFirst(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func decodeAll(raw []string) ([]model.Record, error) {
	recs := make([]model.Record, 0, len(raw))
	for _, item := range raw {
		var rec model.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
