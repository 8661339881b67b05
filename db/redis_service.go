package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const responseKeyPrefix = "nbme:response:" // String: nbme:response:{fingerprint} -> raw JSON body

// RedisStore is a CacheStore shared by every dashboard instance pointing
// at the same Redis database.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration // 0 = keep until Redis evicts
	logger *zap.Logger
}

// NewRedisStore creates a RedisStore on an already connected client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl, logger: logger}
}

// Helper to generate the response key
func getResponseKey(fingerprint string) string {
	return responseKeyPrefix + fingerprint
}

// Get returns the cached body for the fingerprint.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.Client.Get(ctx, getResponseKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		s.logger.Warn("redis cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("failed to read cached response from Redis: %w", err)
	}
	return body, true, nil
}

// Set stores the body under the fingerprint.
func (s *RedisStore) Set(ctx context.Context, key string, body []byte) error {
	if err := s.Client.Set(ctx, getResponseKey(key), body, s.TTL).Err(); err != nil {
		s.logger.Warn("redis cache write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write cached response to Redis: %w", err)
	}
	return nil
}

// InitializeRedisClient creates a Redis client and checks the connection.
func InitializeRedisClient(ctx context.Context, addr, password string, database int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}
