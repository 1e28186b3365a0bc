package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
)

// TokenStore keeps the FreeFinance OAuth credentials in a single Redis
// hash, the durable equivalent of the old /freefinance/auth record.
type TokenStore struct {
	RDB *redis.Client
}

func (s *TokenStore) Pair(ctx context.Context) (freefinance.TokenPair, error) {
	vals, err := s.RDB.HGetAll(ctx, KeyAuth).Result()
	if err != nil {
		return freefinance.TokenPair{}, err
	}
	return freefinance.TokenPair{
		AccessToken:  vals["access_token"],
		RefreshToken: vals["refresh_token"],
	}, nil
}

func (s *TokenStore) SavePair(ctx context.Context, p freefinance.TokenPair) error {
	return s.RDB.HSet(ctx, KeyAuth,
		"access_token", p.AccessToken,
		"refresh_token", p.RefreshToken,
	).Err()
}

func (s *TokenStore) SaveCode(ctx context.Context, code string) error {
	return s.RDB.HSet(ctx, KeyAuth, "code", code).Err()
}

// AcquireRefreshLock takes the single-writer lock around token refresh.
// The TTL covers a crashed holder; ReleaseRefreshLock frees it early.
func (s *TokenStore) AcquireRefreshLock(ctx context.Context) (bool, error) {
	return s.RDB.SetNX(ctx, KeyRefreshLock, "1", TTLRefreshLock).Result()
}

func (s *TokenStore) ReleaseRefreshLock(ctx context.Context) error {
	return s.RDB.Del(ctx, KeyRefreshLock).Err()
}
