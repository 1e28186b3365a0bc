package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Dedup marks processed event ids so redelivered events are skipped. Keys
// expire after TTLDedup.
type Dedup struct {
	RDB *redis.Client
}

func (d *Dedup) Seen(ctx context.Context, key string) (bool, error) {
	return Exists(ctx, d.RDB, key)
}

func (d *Dedup) Mark(ctx context.Context, key string) error {
	return d.RDB.Set(ctx, key, "1", TTLDedup).Err()
}
