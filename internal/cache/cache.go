package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Leaderboard is a score-ordered member set. The redis implementation backs
// it with a sorted set; the noop keeps the referral surface functional when
// redis is not configured.
type Leaderboard interface {
	IncrScore(ctx context.Context, board, member string, delta float64) error
	Top(ctx context.Context, board string, n int64) ([]ScoredMember, error)
}

type ScoredMember struct {
	Member string
	Score  float64
}

type NoopCache struct{}

func NewNoop() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (n *NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (n *NoopCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (n *NoopCache) IncrScore(ctx context.Context, board, member string, delta float64) error {
	return nil
}

func (n *NoopCache) Top(ctx context.Context, board string, n2 int64) ([]ScoredMember, error) {
	return nil, nil
}
