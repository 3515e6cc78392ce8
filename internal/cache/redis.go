package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"time"
)

const (
	balanceKeyPrefix  = "ledger:balance:"
	DefaultBalanceTTL = 30 * time.Second
)

type RedisBalanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisBalanceCache(client redis.UniversalClient, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &RedisBalanceCache{client: client, ttl: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisBalanceCache) Get(ctx context.Context, accountID uuid.UUID) (models.Balances, bool) {
	data, err := c.client.Get(ctx, key(accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("balance cache read failed", zap.Stringer("account", accountID), zap.Error(err))
		}
		return models.Balances{}, false
	}
	var b models.Balances
	if err := json.Unmarshal(data, &b); err != nil {
		logger.Log.Warn("balance cache entry is corrupt", zap.Stringer("account", accountID), zap.Error(err))
		return models.Balances{}, false
	}
	return b, true
}

func (c *RedisBalanceCache) Set(ctx context.Context, b models.Balances) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(b.AccountID), data, c.ttl).Err(); err != nil {
		logger.Log.Warn("balance cache write failed", zap.Stringer("account", b.AccountID), zap.Error(err))
	}
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if len(accountIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		keys = append(keys, key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("balance cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func key(id uuid.UUID) string {
	return balanceKeyPrefix + id.String()
}
