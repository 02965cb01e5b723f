package ratecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces cache entries in a shared Redis.
	DefaultKeyPrefix = "fdcalc:rate_cache:"

	// DefaultKeyTTL keeps entries well past the freshness TTL so a stale
	// rate is still available when the provider is down.
	DefaultKeyTTL = 7 * 24 * time.Hour
)

// RedisStore keeps entries as JSON values in Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	keyTTL time.Duration
}

type redisSettings struct {
	password string
	db       int
	prefix   string
	keyTTL   time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisSettings)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *redisSettings) { s.prefix = prefix }
}

// WithKeyTTL sets the Redis expiry of each entry. Zero keeps entries forever.
func WithKeyTTL(ttl time.Duration) RedisOption {
	return func(s *redisSettings) { s.keyTTL = ttl }
}

// WithCredentials sets the password and database for a plain host:port
// address. Credentials in a redis:// URL take precedence.
func WithCredentials(password string, db int) RedisOption {
	return func(s *redisSettings) {
		s.password = password
		s.db = db
	}
}

func newRedisSettings(opts []RedisOption) redisSettings {
	s := redisSettings{prefix: DefaultKeyPrefix, keyTTL: DefaultKeyTTL}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewRedisStore connects to addr and verifies the connection. addr is either
// host:port or a redis:// URL.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	settings := newRedisSettings(opts)

	var ropts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		ropts = parsed
	} else {
		ropts = &redis.Options{Addr: addr, Password: settings.password, DB: settings.db}
	}

	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: settings.prefix, keyTTL: settings.keyTTL}, nil
}

// NewRedisStoreFromClient wraps an existing client. Credential options are
// ignored.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	settings := newRedisSettings(opts)
	return &RedisStore{client: client, prefix: settings.prefix, keyTTL: settings.keyTTL}
}

// Key returns the Redis key for a product code.
func (s *RedisStore) Key(productCode string) string {
	return s.prefix + productCode
}

func (s *RedisStore) GetEntry(ctx context.Context, productCode string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.Key(productCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", productCode, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode cached rate %s: %w", productCode, err)
	}
	return &e, nil
}

func (s *RedisStore) PutEntry(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cached rate %s: %w", e.ProductCode, err)
	}
	if err := s.client.Set(ctx, s.Key(e.ProductCode), data, s.keyTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", e.ProductCode, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
