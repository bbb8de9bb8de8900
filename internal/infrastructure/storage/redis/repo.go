package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
	"livefeed/internal/infrastructure/storage"
)

// Repo keeps the strategy document under a single string key.
type Repo struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Repo {
	return &Repo{rdb: rdb, key: key}
}

func (r *Repo) Load(ctx context.Context) ([]domain.Strategy, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Strategy{}, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.Decode(b)
}

func (r *Repo) Save(ctx context.Context, set []domain.Strategy) error {
	b, err := storage.Encode(set)
	if err != nil {
		return err
	}
	// no expiry: the document lives as long as the key
	return r.rdb.Set(ctx, r.key, b, 0).Err()
}

// Close is a no-op; the client is owned by the container.
func (r *Repo) Close() error { return nil }

var _ port.StrategyStore = (*Repo)(nil)
