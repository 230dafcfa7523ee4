package store

import (
	"context"
	"fmt"

	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/go-redis/redis/v8"
)

// RedisSettings keeps each scope in one hash named "<prefix>:<scope>".
type RedisSettings struct {
	client redis.UniversalClient
	prefix string
}

var _ credentials.Backend = (*RedisSettings)(nil)

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		TLSConfig:    opts.TLSConfig,
	}), nil
}

func NewRedisSettings(client redis.UniversalClient, prefix string) *RedisSettings {
	return &RedisSettings{client: client, prefix: prefix}
}

func (r *RedisSettings) Load(ctx context.Context, scope string) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, r.key(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read scope %q: %w", scope, err)
	}
	return values, nil
}

func (r *RedisSettings) Save(ctx context.Context, scope string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := r.client.HSet(ctx, r.key(scope), fields).Err(); err != nil {
		return fmt.Errorf("redis write scope %q: %w", scope, err)
	}
	return nil
}

func (r *RedisSettings) key(scope string) string {
	return r.prefix + ":" + scope
}
