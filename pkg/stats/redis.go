package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults for RedisStore.
const (
	DefaultPrefix = "fetchpool:stats"
	DefaultTTL    = 24 * time.Hour
)

// RedisStore keeps counters in Redis hashes:
//
//	<prefix>:total                 success / error
//	<prefix>:host:<host>           success / error
//	<prefix>:class                 client / server / network / unexpected
//	<prefix>:minute:<yyyymmddhhmm> success / error (expires after TTL)
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// WithTTL sets the expiry of per-minute and per-host keys. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, opts ...RedisOption) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}

	s := &RedisStore{
		redis:  redisClient,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements Store. All increments are sent in one pipeline.
func (s *RedisStore) Record(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := resultField(ev.Result)

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)

	if ev.Host != "" {
		hostKey := s.hostKey(ev.Host)
		pipe.HIncrBy(ctx, hostKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, hostKey, s.ttl)
		}
	}

	if ev.Class != "" {
		pipe.HIncrBy(ctx, s.classKey(), ev.Class, 1)
	}

	minuteKey := s.minuteKey(at)
	pipe.HIncrBy(ctx, minuteKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, minuteKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store fetch stats in redis: %w", err)
	}
	return nil
}

// Totals returns the overall counters.
func (s *RedisStore) Totals(ctx context.Context) (Counters, error) {
	return s.readCounters(ctx, s.totalKey())
}

// HostCounters returns the counters of a single host.
func (s *RedisStore) HostCounters(ctx context.Context, host string) (Counters, error) {
	return s.readCounters(ctx, s.hostKey(host))
}

// ClassCounts returns failure counts per error class.
func (s *RedisStore) ClassCounts(ctx context.Context) (map[string]int64, error) {
	values, err := s.redis.HGetAll(ctx, s.classKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get class counts: %w", err)
	}

	out := make(map[string]int64, len(values))
	for class, raw := range values {
		var n int64
		if _, err := fmt.Sscan(raw, &n); err != nil {
			return nil, fmt.Errorf("parse class count %q: %w", class, err)
		}
		out[class] = n
	}
	return out, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func (s *RedisStore) readCounters(ctx context.Context, key string) (Counters, error) {
	var c Counters

	success, err := s.redis.HGet(ctx, key, "success").Int64()
	if err != nil && err != redis.Nil {
		return c, fmt.Errorf("get success count: %w", err)
	}
	failed, err := s.redis.HGet(ctx, key, "error").Int64()
	if err != nil && err != redis.Nil {
		return c, fmt.Errorf("get error count: %w", err)
	}

	c.Success = success
	c.Error = failed
	return c, nil
}

func (s *RedisStore) totalKey() string {
	return s.prefix + ":total"
}

func (s *RedisStore) hostKey(host string) string {
	return s.prefix + ":host:" + strings.ToLower(host)
}

func (s *RedisStore) classKey() string {
	return s.prefix + ":class"
}

func (s *RedisStore) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func resultField(result string) string {
	if result == "success" {
		return "success"
	}
	return "error"
}
