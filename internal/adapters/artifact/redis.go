package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/scholar/internal/domain/risk"
)

// Key prefix for per-model history entries.
const prefixModel = "model:"

// RedisConfig holds connection settings for RedisStore.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Key         string // key holding the current model
	DialTimeout time.Duration
	// HistoryTTL bounds how long superseded models stay addressable by ID.
	HistoryTTL time.Duration
}

// DefaultRedisConfig returns local defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Key:         "scholar:model:current",
		DialTimeout: 5 * time.Second,
		HistoryTTL:  7 * 24 * time.Hour,
	}
}

// RedisStore keeps the current model under one key and every saved model
// under a per-ID key.
type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		cfg.Key = DefaultRedisConfig().Key
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultRedisConfig().DialTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &RedisStore{client: client, cfg: cfg}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) historyKey(id string) string {
	return s.cfg.Key + ":" + prefixModel + id
}

func (s *RedisStore) Save(ctx context.Context, m *risk.Model) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.cfg.Key, data, 0)
	pipe.Set(ctx, s.historyKey(m.ID), data, s.cfg.HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*risk.Model, error) {
	return s.get(ctx, s.cfg.Key)
}

var _ Archive = (*RedisStore)(nil)

// LoadByID returns a previously saved model that has not expired.
func (s *RedisStore) LoadByID(ctx context.Context, id string) (*risk.Model, error) {
	return s.get(ctx, s.historyKey(id))
}

func (s *RedisStore) get(ctx context.Context, key string) (*risk.Model, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decode(data)
}
