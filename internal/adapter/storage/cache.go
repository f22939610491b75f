package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

const historyTTL = 5 * time.Minute

// HistoryCache caches per-user history lookups in Redis. Every status
// write invalidates the user's entries, so a stale page lives at most one
// write apart from the store. Cache failures degrade to store reads.
type HistoryCache struct {
	rdb *redis.Client
}

func ConnectCache(ctx context.Context, addr string) (*HistoryCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &HistoryCache{rdb: rdb}, nil
}

func historyKey(userID string, status domain.Status) string {
	return fmt.Sprintf("history:%s:%s", userID, status)
}

func (c *HistoryCache) Get(ctx context.Context, userID string, status domain.Status) ([]domain.Transaction, bool) {
	raw, err := c.rdb.Get(ctx, historyKey(userID, status)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("history cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, false
	}
	return txs, true
}

func (c *HistoryCache) Set(ctx context.Context, userID string, status domain.Status, txs []domain.Transaction) {
	raw, err := json.Marshal(txs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, historyKey(userID, status), raw, historyTTL).Err(); err != nil {
		slog.Warn("history cache write failed", "user_id", userID, "error", err)
	}
}

// Invalidate drops every cached page for the user, filtered and unfiltered.
func (c *HistoryCache) Invalidate(ctx context.Context, userID string) {
	iter := c.rdb.Scan(ctx, 0, historyKey(userID, "*"), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("history cache scan failed", "user_id", userID, "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("history cache invalidate failed", "user_id", userID, "error", err)
		}
	}
}

func (c *HistoryCache) Close() error {
	return c.rdb.Close()
}
