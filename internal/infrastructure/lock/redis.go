package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/ports"
)

const (
	defaultLockKey = "pricenews:ingestion:lock"
	defaultLockTTL = 30 * time.Minute
	releaseTimeout = 5 * time.Second
)

var refreshScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Redis is a cross-process run lock built on SET NX PX. Each acquisition
// uses a fresh token so only the holder can release it. While held, the key's
// TTL is refreshed every ttl/3, so a run longer than ttl keeps the lock; the
// TTL only bounds how long a crashed holder blocks other replicas.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

var _ ports.RunLock = (*Redis)(nil)

// NewRedis builds a lock over an existing client.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration, logger *zap.Logger) *Redis {
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, key: key, ttl: ttl, logger: logger}
}

// NewRedisClient opens a client from configuration and checks connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Acquire tries once; ok is false when another process holds the key.
func (r *Redis) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() { r.release(token, stop, stopped) })
	}, true, nil
}

func (r *Redis) keepAlive(token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			n, err := refreshScript.Run(ctx, r.client, []string{r.key}, token, r.ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				r.logger.Warn("refresh run lock failed", zap.String("key", r.key), zap.Error(err))
			case n == 0:
				r.logger.Warn("run lock lost before release", zap.String("key", r.key))
				return
			}
		}
	}
}

func (r *Redis) release(token string, stop chan<- struct{}, stopped <-chan struct{}) {
	close(stop)
	<-stopped

	releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(releaseCtx, r.client, []string{r.key}, token).Int()
	switch {
	case err != nil:
		r.logger.Warn("release run lock failed", zap.String("key", r.key), zap.Error(err))
	case n == 0:
		r.logger.Warn("run lock expired before release", zap.String("key", r.key))
	}
}
