package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

func NewRedisFromURL(rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) IncrScore(ctx context.Context, board, member string, delta float64) error {
	return r.client.ZIncrBy(ctx, board, delta, member).Err()
}

func (r *RedisCache) Top(ctx context.Context, board string, n int64) ([]ScoredMember, error) {
	entries, err := r.client.ZRevRangeWithScores(ctx, board, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	members := make([]ScoredMember, 0, len(entries))
	for _, e := range entries {
		member, _ := e.Member.(string)
		members = append(members, ScoredMember{Member: member, Score: e.Score})
	}
	return members, nil
}
