package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimPrefix = "zoiner:cast:"

// Guard remembers which casts have already been claimed by a pipeline run.
type Guard struct {
	rdb    *redis.Client
	window time.Duration
}

func New(addr string, window time.Duration) (*Guard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Guard{rdb: rdb, window: window}, nil
}

func (g *Guard) Close() error {
	return g.rdb.Close()
}

// Claim reports whether the caller is the first to see hash within the
// window.
func (g *Guard) Claim(ctx context.Context, hash string) (bool, error) {
	return g.rdb.SetNX(ctx, claimPrefix+hash, time.Now().Unix(), g.window).Result()
}

// Release drops a claim so the cast can be processed again.
func (g *Guard) Release(ctx context.Context, hash string) error {
	return g.rdb.Del(ctx, claimPrefix+hash).Err()
}
