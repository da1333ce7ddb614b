package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis ships admission events to a Redis instance. It keeps a
// cumulative allowed/denied hash, per-minute buckets with a TTL, and
// optionally per-client hashes.
//
// Per-client tracking is off by default: with many distinct clients it
// multiplies the key count, so turn it on deliberately.
type Redis struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	trackClients bool
}

// RedisConfig for creating a Redis recorder.
type RedisConfig struct {
	Addr     string // Redis address (e.g., "localhost:6379")
	Password string // Redis password (empty for no auth)
	DB       int    // Redis database number

	// Prefix namespaces every key (default: "ratefence:stats").
	Prefix string

	// TTL applies to per-minute buckets and per-client hashes; the
	// cumulative totals never expire (default: 24h).
	TTL time.Duration

	// TrackClients enables per-client hashes.
	TrackClients bool
}

// NewRedis creates a Redis-backed recorder.
func NewRedis(config RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "ratefence:stats"
	}
	ttl := config.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Redis{
		client:       client,
		prefix:       prefix,
		ttl:          ttl,
		trackClients: config.TrackClients,
	}
}

// Record counts one admission decision. All increments go out in a
// single pipeline round trip.
func (s *Redis) Record(ctx context.Context, client string, allowed bool) error {
	field := "denied"
	if allowed {
		field = "allowed"
	}

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, time.Now().UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)

	if s.trackClients && client != "" {
		clientKey := s.prefix + ":client:" + client
		pipe.HIncrBy(ctx, clientKey, field, 1)
		pipe.Expire(ctx, clientKey, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals reads back the cumulative allowed/denied counters.
func (s *Redis) Totals(ctx context.Context) (allowed, denied int64, err error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return 0, 0, err
	}

	allowed, _ = strconv.ParseInt(fields["allowed"], 10, 64)
	denied, _ = strconv.ParseInt(fields["denied"], 10, 64)
	return allowed, denied, nil
}

// Clear removes every key under the recorder's prefix.
func (s *Redis) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping checks if the Redis connection is alive.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Redis) Close() error {
	return s.client.Close()
}
