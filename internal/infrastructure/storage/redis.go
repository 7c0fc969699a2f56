package storage

import (
	"context"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/favorize-app/multi-auth-sub004/config"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// Redis is a SecureStorage backed by a Redis instance. Keys are namespaced
// with a prefix so several deployments can share one server.
type Redis struct {
	client *goredis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}

	return &Redis{client: client, prefix: cfg.KeyPrefix}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Store(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}
	return nil
}

func (r *Redis) Retrieve(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}
	return value, true, nil
}

func (r *Redis) Remove(ctx context.Context, key string) (bool, error) {
	removed, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}
	return removed > 0, nil
}

func (r *Redis) Contains(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}
	return n > 0, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err.Error())
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, r.prefix))
	}
	return out, nil
}

func (r *Redis) ItemCount(ctx context.Context) (int, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// scanKeys walks the namespaced keyspace with SCAN to avoid blocking the
// server the way KEYS would.
func (r *Redis) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err.Error())
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
