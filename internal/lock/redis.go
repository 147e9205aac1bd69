package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"stationrent-backend/internal/logger"
)

// releaseScript deletes the key only if it still carries our token, so a
// holder whose TTL lapsed cannot drop someone else's lock.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

type Redis struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, newToken: uuid.NewString}
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *Redis) TryAcquire(ctx context.Context, key string) (Release, error) {
	token := r.newToken()
	logger.ExternalServiceCall("redis", "SETNX", "key", key)
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	logger.ExternalServiceResult("redis", "SETNX", err, "key", key, "acquired", ok)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := r.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logger.Warn("Failed to release lock, it will expire", "key", key, "error", err)
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
