package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elskow/authguard/internal/config"
)

const BackendRedis = "redis"

// RedisStore keeps attempt state in Redis so several processes share it.
// Each username owns two plain string keys.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings; a failed ping closes the client.
func OpenRedis(ctx context.Context, cfg *config.RedisConfig, timeout time.Duration) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func failedKey(username string) string {
	return "auth:" + username + ":failed"
}

func lockUntilKey(username string) string {
	return "auth:" + username + ":lock_until"
}

func (r *RedisStore) Name() string {
	return BackendRedis
}

func (r *RedisStore) GetStatus(ctx context.Context, username string) (Status, error) {
	values, err := r.client.MGet(ctx, failedKey(username), lockUntilKey(username)).Result()
	if err != nil {
		return Status{}, transient(BackendRedis, "get status", err)
	}

	var status Status
	if raw, ok := values[0].(string); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Status{}, fmt.Errorf("malformed failed count %q for %s: %w", raw, username, err)
		}
		status.FailedCount = n
	}
	if raw, ok := values[1].(string); ok && raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Status{}, fmt.Errorf("malformed lock_until %q for %s: %w", raw, username, err)
		}
		status.LockUntil = fromEpochSeconds(secs)
	}
	return status, nil
}

func (r *RedisStore) SetStatus(ctx context.Context, username string, status Status) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, failedKey(username), strconv.Itoa(status.FailedCount), 0)
		pipe.Set(ctx, lockUntilKey(username), strconv.FormatFloat(epochSeconds(status.LockUntil), 'f', -1, 64), 0)
		return nil
	})
	if err != nil {
		return transient(BackendRedis, "set status", err)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, failedKey(username), lockUntilKey(username)).Err(); err != nil {
		return transient(BackendRedis, "reset", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return transient(BackendRedis, "ping", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
