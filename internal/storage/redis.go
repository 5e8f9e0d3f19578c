package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps ledger records in Redis. PutIfAbsent uses SETNX, so it is a
// true conditional write and safe for overlapping triggers sharing one server.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, password string, db int, logger logrus.FieldLogger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	logger.WithField("addr", addr).Info("Redis ledger connected")
	return &RedisStore{client: client, prefix: "newsdigest:", log: logger.WithField("component", "ledger")}, nil
}

// Has reports whether the prefixed key exists.
func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to read ledger key")
		return false, fmt.Errorf("redis exists %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// PutIfAbsent stores the record with SETNX, so only the first writer wins.
func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, at time.Time) error {
	created, err := s.client.SetNX(ctx, s.prefix+key, at.UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to write ledger key")
		return fmt.Errorf("redis setnx %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	if !created {
		s.log.WithField("key", key).Debug("Ledger key already present")
	}
	return nil
}

// Close closes the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
