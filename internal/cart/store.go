// Package cart はRedisに保持する利用者ごとのカートを提供する。
package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL はカートの保持期間。書き込みのたびに延長される。
const DefaultTTL = 7 * 24 * time.Hour

// Store はカートをRedisのハッシュ cart:<userID> (productID -> 数量) として保持する。
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore はStoreを生成する。
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return "cart:" + userID
}

// Increment は数量を加算し、加算後の数量を返す。
func (s *Store) Increment(ctx context.Context, userID, productID string, qty int) (int, error) {
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, s.key(userID), productID, int64(qty))
		pipe.Expire(ctx, s.key(userID), s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment cart item: %w", err)
	}
	return int(incr.Val()), nil
}

// Set は数量を上書きする。0以下の場合は商品をカートから取り除く。
func (s *Store) Set(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(userID), productID, qty)
		pipe.Expire(ctx, s.key(userID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set cart item: %w", err)
	}
	return nil
}

// Remove は商品をカートから取り除く。
func (s *Store) Remove(ctx context.Context, userID string, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}
	if err := s.redis.HDel(ctx, s.key(userID), productIDs...).Err(); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear はカートを空にする。
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Items はカート内の商品IDと数量を返す。不正な値のエントリは無視する。
func (s *Store) Items(ctx context.Context, userID string) (map[string]int, error) {
	raw, err := s.redis.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	items := make(map[string]int, len(raw))
	for productID, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil || qty <= 0 {
			continue
		}
		items[productID] = qty
	}
	return items, nil
}
