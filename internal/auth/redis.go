package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"campusweb/internal/config"
	appLog "campusweb/internal/log"
)

const sessionKeyPrefix = "campusweb:session:"

// RedisStore keeps sessions in Redis with a per-key TTL.
type RedisStore struct {
	rdb *goredis.Client
}

// NewRedisStore connects to Redis and checks the connection with PING.
func NewRedisStore(cfg config.SessionStoreConfig) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect %s: %w", cfg.RedisAddr, err)
	}

	appLog.Info("redis session store connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKeyPrefix+id, data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+id).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
